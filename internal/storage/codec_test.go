package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lathe/internal/model"
)

func TestDecodeFavoriteFixture(t *testing.T) {
	data := readFixture(t, "favorite_v1.json")
	favorite, err := DecodeFavorite(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if favorite.ID != "fav-vase-1" || favorite.ObjectType != "vase" {
		t.Fatalf("unexpected favorite: %+v", favorite)
	}
	if favorite.Rating == nil || *favorite.Rating != 4 {
		t.Fatalf("unexpected rating: %v", favorite.Rating)
	}
	want := model.DesignParameters{
		SegmentCount: 5, ObjectWidth: 2.5, TwistAngle: 20, TwistGrooveDepth: 1,
		VerticalWaveFreq: 3, VerticalWaveDepth: 1,
	}
	if favorite.Parameters != want {
		t.Fatalf("unexpected parameters: %+v", favorite.Parameters)
	}
}

func TestDecodeGenerationFixture(t *testing.T) {
	generation, err := DecodeGeneration(readFixture(t, "generation_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if generation.ID != "gen-1" || generation.Seed != 42 || len(generation.Designs) != 1 {
		t.Fatalf("unexpected generation: %+v", generation)
	}
	design := generation.Designs[0]
	if design.CutPoint != 12 || design.Parameters.SegmentCount != 6 || len(design.ParentIDs) != 2 {
		t.Fatalf("unexpected design: %+v", design)
	}
}

func TestEncodeFavoriteUsesLabels(t *testing.T) {
	data, err := EncodeFavorite(model.Favorite{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "f1",
		ObjectType:      "stool",
		Parameters:      model.DesignParameters{SegmentCount: 4, ObjectWidth: 2},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"Vertical Wave Frequency":0`) || strings.Contains(body, "segment_count") {
		t.Fatalf("payload should carry human labels only: %s", body)
	}

	decoded, err := DecodeFavorite(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Parameters.SegmentCount != 4 || decoded.Parameters.ObjectWidth != 2 {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeGeneration(model.Generation{ID: "g"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeGeneration(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}

	lineage, err := EncodeLineage([]model.LineageRecord{{DesignID: "d"}})
	if err != nil {
		t.Fatalf("encode lineage: %v", err)
	}
	if _, err := DecodeLineage(lineage); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeFavoriteRequiresEveryLabel(t *testing.T) {
	data := []byte(`{"schema_version":1,"codec_version":1,"id":"f","object_type":"vase","parameters":{"Segment Count":3}}`)
	if _, err := DecodeFavorite(data); !errors.Is(err, model.ErrMissingLabel) {
		t.Fatalf("expected missing label error, got %v", err)
	}
}

func TestFavoriteKeyDistinguishesTypeAndValues(t *testing.T) {
	p := model.DesignParameters{SegmentCount: 5, ObjectWidth: 2.5}
	if FavoriteKey("vase", p) == FavoriteKey("stool", p) {
		t.Fatal("object type must be part of the key")
	}
	q := p
	q.ObjectWidth = 2.5000001
	if FavoriteKey("vase", p) == FavoriteKey("vase", q) {
		t.Fatal("parameter values must be part of the key")
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
