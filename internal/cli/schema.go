package cli

import (
	"etapas-cli/internal/format"
	"etapas-cli/internal/model"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// payloadSchema describes the body accepted by create and update.
func payloadSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&model.Payload{})
	s.Title = "Etapa"
	s.Description = "Stage payload sent on create (POST /etapas) and update (PUT /etapas/{id})."
	return s
}

func newSchemaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the stage payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return format.WriteJSON(cmd.OutOrStdout(), payloadSchema(), true)
		},
	}
}
