package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lathe/internal/config"
	"lathe/internal/model"
	"lathe/pkg/lathe"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite designs",
	}
	cmd.AddCommand(newFavoritesAddCmd(a), newFavoritesListCmd(a), newFavoritesRemoveCmd(a), newFavoritesImportCmd(a))
	return cmd
}

func newFavoritesAddCmd(a *app) *cobra.Command {
	var rating int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a design as a favorite; saving it again updates the rating",
		Args:  cobra.NoArgs,
	}
	design := addDesignFlags(cmd)
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 0 to 5")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := design.resolve(cmd, a)
		if err != nil {
			return err
		}
		req := lathe.FavoriteRequest{ObjectType: design.objectType, Parameters: p}
		if cmd.Flags().Changed("rating") {
			req.Rating = &rating
		}
		fav, err := a.client.AddFavorite(cmd.Context(), req)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return a.printJSON(fav)
		}
		a.printf("saved favorite %s (%s)\n", fav.ID, fav.ObjectType)
		return nil
	}
	return cmd
}

func newFavoritesListCmd(a *app) *cobra.Command {
	var objectType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites in the order they were saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			favorites, err := a.client.Favorites(cmd.Context(), objectType)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				records := make([]model.DesignRecord, 0, len(favorites))
				for _, f := range favorites {
					rec := model.ToRecord(f.ObjectType, f.Parameters)
					rec.Rating = f.Rating
					records = append(records, rec)
				}
				return a.printJSON(records)
			}
			t := newTable("favorites", "id", "type", "rating", "saved", "parameters")
			for _, f := range favorites {
				rating := mutedStyle.Render("-")
				if f.Rating != nil {
					rating = strconv.Itoa(*f.Rating)
				}
				t.add(f.ID, f.ObjectType, rating, f.SavedAtUTC, formatParameters(f.Parameters))
			}
			a.printf("%s", t)
			return nil
		},
	}
	cmd.Flags().StringVar(&objectType, "type", "", "only list one object class")
	return cmd
}

func newFavoritesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.client.RemoveFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("favorite not found: %s", args[0])
			}
			a.printf("removed favorite %s\n", args[0])
			return nil
		},
	}
}

func newFavoritesImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <favorites.json>",
		Short: "Save every entry of a favorites file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.ImportFavorites(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("imported %d favorites\n", n)
			return nil
		},
	}
}

func newGenerationsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "generations [id]",
		Short: "List generations, or show one with its lineage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.showGeneration(cmd, args[0])
			}
			items, err := a.client.Generations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(items)
			}
			t := newTable("generations", "id", "created", "designs")
			for _, g := range items {
				t.add(g.ID, g.CreatedAtUTC, strconv.Itoa(g.Designs))
			}
			a.printf("%s", t)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum generations to list")
	return cmd
}

func (a *app) showGeneration(cmd *cobra.Command, id string) error {
	detail, err := a.client.Generation(cmd.Context(), id)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return a.printJSON(detail)
	}
	status := make(map[string]string, len(detail.Reports))
	for _, r := range detail.Reports {
		status[r.DesignID] = r.Status
	}
	t := newTable(fmt.Sprintf("generation %s (seed %d)", detail.Generation.ID, detail.Generation.Seed),
		"design", "type", "operation", "parents", "cut", "status")
	for _, rec := range detail.Lineage {
		cut := mutedStyle.Render("-")
		if rec.CutPoint > 0 {
			cut = strconv.Itoa(rec.CutPoint)
		}
		s := status[rec.DesignID]
		if s == "" {
			s = mutedStyle.Render("unknown")
		} else {
			s = statusText(s)
		}
		t.add(rec.DesignID, rec.ObjectType, rec.Operation, fmt.Sprint(rec.ParentIDs), cut, s)
	}
	a.printf("%s", t)
	if cfg := detail.Config; cfg != nil {
		a.printf("%s\n", mutedStyle.Render(fmt.Sprintf(
			"bred %s from %d favorites: %d bits/field, mutation %g, crossover %g, %s analyzer at %g°",
			cfg.CreatedAtUTC, cfg.Favorites, cfg.BitsPerField,
			cfg.MutationProbability, cfg.CrossoverProbability, cfg.Analyzer, cfg.MaxOverhangAngle,
		)))
	}
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}, &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := config.DefaultConfig().Save(args[0]); err != nil {
				return err
			}
			a.printf("wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
