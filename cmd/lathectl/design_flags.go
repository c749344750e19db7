package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lathe/internal/model"
)

// designFlags binds --type and one flag per design field. Unset fields take
// the class default.
type designFlags struct {
	objectType string
	values     map[model.Field]*float64
}

func flagName(f model.Field) string {
	return strings.ReplaceAll(f.Name(), "_", "-")
}

func addDesignFlags(cmd *cobra.Command) *designFlags {
	d := &designFlags{values: make(map[model.Field]*float64, len(model.Fields))}
	cmd.Flags().StringVar(&d.objectType, "type", "vase", "object class")
	for _, f := range model.Fields {
		d.values[f] = cmd.Flags().Float64(flagName(f), 0, f.Label())
	}
	return d
}

func (d *designFlags) resolve(cmd *cobra.Command, a *app) (model.DesignParameters, error) {
	p, err := a.client.Defaults(d.objectType)
	if err != nil {
		return model.DesignParameters{}, err
	}
	for _, f := range model.Fields {
		if cmd.Flags().Changed(flagName(f)) {
			p = p.With(f, *d.values[f])
		}
	}
	return p, nil
}

func formatParameters(p model.DesignParameters) string {
	parts := make([]string, 0, len(model.Fields))
	for _, f := range model.Fields {
		parts = append(parts, fmt.Sprintf("%s=%g", f.Label(), p.Value(f)))
	}
	return strings.Join(parts, ", ")
}
