package lathe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lathe/internal/artifacts"
	"lathe/internal/config"
	"lathe/internal/model"
	"lathe/internal/repair"
	"lathe/internal/storage"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(t.TempDir(), "generations"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func steepVase() model.DesignParameters {
	return model.DesignParameters{
		SegmentCount:      9,
		ObjectWidth:       3,
		TwistAngle:        40,
		TwistGrooveDepth:  4,
		VerticalWaveFreq:  15,
		VerticalWaveDepth: 4,
	}
}

func TestClientEvolveRecordsGeneration(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	stool, err := client.Defaults("stool")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	wider := stool
	wider.ObjectWidth = 3.5
	for _, req := range []FavoriteRequest{
		{ObjectType: "Vases", Parameters: steepVase()},
		{ObjectType: "stool", Parameters: stool},
		{ObjectType: "bar stool", Parameters: wider},
	} {
		if _, err := client.AddFavorite(ctx, req); err != nil {
			t.Fatalf("add favorite: %v", err)
		}
	}

	summary, err := client.Evolve(ctx, EvolveRequest{Seed: 42, Workers: 2})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if len(summary.Designs) != 6 {
		t.Fatalf("expected 2 vase + 4 stool children, got %d", len(summary.Designs))
	}
	for i, r := range summary.Designs {
		want := "stool"
		if i < 2 {
			want = "vase"
		}
		if r.Design.ObjectType != want {
			t.Fatalf("design %d: object type %s, want %s", i, r.Design.ObjectType, want)
		}
		if r.Err != nil {
			t.Fatalf("design %d: %v", i, r.Err)
		}
		if r.Status == repair.StatusRepaired {
			check, err := client.Check(ctx, CheckRequest{ObjectType: want, Parameters: r.Design.Parameters})
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if check.HasOverhang {
				t.Fatalf("design %d was repaired but still overhangs", i)
			}
		}
	}

	items, err := client.Generations(ctx, 10)
	if err != nil {
		t.Fatalf("generations: %v", err)
	}
	if len(items) != 1 || items[0].ID != summary.GenerationID || items[0].Designs != 6 {
		t.Fatalf("unexpected generations: %+v", items)
	}

	detail, err := client.Generation(ctx, summary.GenerationID)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if len(detail.Lineage) != 6 || len(detail.Reports) != 6 {
		t.Fatalf("expected lineage and reports per design: %d %d", len(detail.Lineage), len(detail.Reports))
	}
	if detail.Generation.Seed != 42 {
		t.Fatalf("unexpected seed: %d", detail.Generation.Seed)
	}

	records, err := artifacts.ReadDesigns(filepath.Join(summary.ArtifactsDir, "designs.json"))
	if err != nil {
		t.Fatalf("read designs: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("unexpected designs.json: %+v", records)
	}

	index, err := artifacts.ListRunIndex(filepath.Dir(summary.ArtifactsDir))
	if err != nil {
		t.Fatalf("run index: %v", err)
	}
	if len(index) != 1 || index[0].GenerationID != summary.GenerationID || index[0].Repaired != summary.Repaired {
		t.Fatalf("unexpected run index: %+v", index)
	}
}

func TestClientGenerationsSurviveRestartWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "generations")
	first, err := New(Options{StoreKind: "memory", ArtifactsDir: dir})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	summary, err := first.Evolve(ctx, EvolveRequest{
		FavoritesPath: filepath.Join("..", "..", "testdata", "fixtures", "favorites.json"),
		Seed:          5,
	})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := New(Options{StoreKind: "memory", ArtifactsDir: dir})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer second.Close()

	items, err := second.Generations(ctx, 0)
	if err != nil {
		t.Fatalf("generations: %v", err)
	}
	if len(items) != 1 || items[0].ID != summary.GenerationID || items[0].Designs != len(summary.Designs) {
		t.Fatalf("expected the generation from the run index, got %+v", items)
	}

	detail, err := second.Generation(ctx, summary.GenerationID)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if detail.Config == nil || detail.Config.Seed != 5 || detail.Config.Analyzer == "" {
		t.Fatalf("expected breeding settings, got %+v", detail.Config)
	}
	if detail.Generation.Seed != 5 || len(detail.Generation.Designs) != len(summary.Designs) {
		t.Fatalf("unexpected generation: %+v", detail.Generation)
	}
	if len(detail.Lineage) != len(summary.Designs) || len(detail.Reports) != len(summary.Designs) {
		t.Fatalf("expected lineage and reports per design: %d %d", len(detail.Lineage), len(detail.Reports))
	}
	for i, d := range detail.Generation.Designs {
		want := summary.Designs[i].Design
		if d.ID != want.ID || d.Operation != want.Operation || d.Parameters != want.Parameters {
			t.Fatalf("design %d: got %+v want %+v", i, d, want)
		}
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "redis"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestClientEvolveFromFavoritesFile(t *testing.T) {
	client := newTestClient(t)
	summary, err := client.Evolve(context.Background(), EvolveRequest{
		FavoritesPath: filepath.Join("..", "..", "testdata", "fixtures", "favorites.json"),
		Seed:          7,
	})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if summary.Favorites != 2 || len(summary.Designs) != 4 {
		t.Fatalf("unexpected summary: favorites=%d designs=%d", summary.Favorites, len(summary.Designs))
	}
	if summary.Designs[0].Design.ObjectType != "vase" || summary.Designs[3].Design.ObjectType != "stool" {
		t.Fatalf("unexpected type order: %s %s", summary.Designs[0].Design.ObjectType, summary.Designs[3].Design.ObjectType)
	}
	for _, r := range summary.Designs {
		if r.Design.Operation != "mutation" || len(r.Design.ParentIDs) != 1 {
			t.Fatalf("single favorites breed by mutation: %+v", r.Design)
		}
	}

	filtered, err := client.Evolve(context.Background(), EvolveRequest{
		FavoritesPath: filepath.Join("..", "..", "testdata", "fixtures", "favorites.json"),
		ObjectType:    "stool",
		Seed:          7,
	})
	if err != nil {
		t.Fatalf("evolve stool: %v", err)
	}
	if len(filtered.Designs) != 2 {
		t.Fatalf("expected stool children only, got %d", len(filtered.Designs))
	}
}

func TestClientEvolveWithoutFavorites(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Evolve(context.Background(), EvolveRequest{Seed: 1}); !errors.Is(err, ErrNoFavorites) {
		t.Fatalf("expected ErrNoFavorites, got %v", err)
	}
}

func TestClientRepairSteepVase(t *testing.T) {
	client := newTestClient(t)
	res, err := client.Repair(context.Background(), RepairRequest{ObjectType: "vase", Parameters: steepVase()})
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if res.Status != repair.StatusRepaired || res.ChangedLabel() != "Twist Groove Depth" {
		t.Fatalf("unexpected repair: %s %s", res.Status, res.ChangedLabel())
	}
	if res.Parameters.TwistGrooveDepth < 1.999999 || res.Parameters.TwistGrooveDepth > 2.000001 {
		t.Fatalf("unexpected groove depth: %v", res.Parameters.TwistGrooveDepth)
	}

	for _, full := range []bool{false, true} {
		check, err := client.Check(context.Background(), CheckRequest{ObjectType: "vase", Parameters: res.Parameters, FullMesh: full})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if check.HasOverhang {
			t.Fatalf("%s analyzer still reports an overhang", check.Analyzer)
		}
	}
}

func TestClientCheckPathsAgree(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	light, err := client.Check(ctx, CheckRequest{ObjectType: "vase", Parameters: steepVase()})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	full, err := client.Check(ctx, CheckRequest{ObjectType: "vase", Parameters: steepVase(), FullMesh: true})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if light.Analyzer != "light" || full.Analyzer != "mesh" {
		t.Fatalf("unexpected analyzers: %s %s", light.Analyzer, full.Analyzer)
	}
	if !light.HasOverhang || !full.HasOverhang || light.WorstTilt <= 50 {
		t.Fatalf("expected both paths to flag the steep vase: %+v %+v", light, full)
	}
	if _, err := client.Check(ctx, CheckRequest{ObjectType: "lamp"}); !errors.Is(err, config.ErrUnknownClass) {
		t.Fatalf("expected unknown class, got %v", err)
	}
}

func TestClientExportSTL(t *testing.T) {
	client := newTestClient(t)
	stool, err := client.Defaults("stool")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "stool.stl")
	summary, err := client.ExportSTL(context.Background(), ExportRequest{
		MeshRequest: MeshRequest{ObjectType: "stool", Parameters: stool},
		Path:        path,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != summary.Bytes || summary.Bytes != int64(84+50*summary.Triangles) {
		t.Fatalf("unexpected stl size: file=%d bytes=%d triangles=%d", info.Size(), summary.Bytes, summary.Triangles)
	}
	if summary.Metrics.Volume <= 0 || summary.Metrics.Height <= 0 {
		t.Fatalf("unexpected metrics: %+v", summary.Metrics)
	}
}

func TestClientSample(t *testing.T) {
	client := newTestClient(t)
	reports, err := client.Sample(context.Background(), SampleRequest{ObjectType: "side table", Count: 6, Seed: 3})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(reports) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(reports))
	}
	for _, r := range reports {
		if r.Design.ObjectType != "table" || r.Design.Operation != "sample" {
			t.Fatalf("unexpected sample: %+v", r.Design)
		}
	}
}

func TestClientFavorites(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	bad := 9
	if _, err := client.AddFavorite(ctx, FavoriteRequest{ObjectType: "vase", Parameters: steepVase(), Rating: &bad}); !errors.Is(err, storage.ErrInvalidRating) {
		t.Fatalf("expected invalid rating, got %v", err)
	}

	imported, err := client.ImportFavorites(ctx, filepath.Join("..", "..", "testdata", "fixtures", "favorites.json"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 {
		t.Fatalf("expected 2 imported favorites, got %d", imported)
	}
	vases, err := client.Favorites(ctx, "Vase")
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(vases) != 1 || vases[0].ObjectType != "vase" || vases[0].Rating == nil || *vases[0].Rating != 5 {
		t.Fatalf("unexpected vases: %+v", vases)
	}

	removed, err := client.RemoveFavorite(ctx, vases[0].ID)
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	all, err := client.Favorites(ctx, "")
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(all) != 1 || all[0].ObjectType != "stool" {
		t.Fatalf("unexpected favorites after remove: %+v", all)
	}

	if _, err := client.Generation(ctx, "missing"); !errors.Is(err, ErrGenerationNotFound) {
		t.Fatalf("expected ErrGenerationNotFound, got %v", err)
	}
}

func TestClientClasses(t *testing.T) {
	client := newTestClient(t)
	classes := client.Classes()
	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(classes))
	}
	if classes[0].Name != "vase" || classes[0].Height != 14 || len(classes[0].Bounds) != len(model.Fields) {
		t.Fatalf("unexpected vase class: %+v", classes[0])
	}
}
