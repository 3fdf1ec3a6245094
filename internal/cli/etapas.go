package cli

import (
	"strconv"
	"strings"

	"etapas-cli/internal/model"
	"etapas-cli/internal/workflow"

	"github.com/spf13/cobra"
)

type etapaRows []model.Etapa

func (r etapaRows) TableHeaders() []string {
	return []string{"ID", "NOME", "CÓDIGO", "POSIÇÃO", "STATUS"}
}

func (r etapaRows) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, e := range r {
		rows = append(rows, []string{e.ID, e.Nome, e.Codigo, strconv.Itoa(e.Posicao), e.Status.Label()})
	}
	return rows
}

// etapasEnvelope is the {"data": ...} document; --format table prints rows.
type etapasEnvelope struct {
	Data any `json:"data"`

	rows etapaRows
}

func (e etapasEnvelope) TableHeaders() []string { return e.rows.TableHeaders() }
func (e etapasEnvelope) TableRows() [][]string  { return e.rows.TableRows() }

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctrl.LoadAll(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			records := ctrl.Records()
			return writeOut(cmd, app, etapasEnvelope{Data: records, rows: records})
		},
	}
}

type draftFlags struct {
	nome    string
	codigo  string
	posicao string
	status  string
}

func (f *draftFlags) register(cmd *cobra.Command, statusDefault string) {
	cmd.Flags().StringVar(&f.nome, "nome", "", "Stage name")
	cmd.Flags().StringVar(&f.codigo, "codigo", "", "Stage code")
	cmd.Flags().StringVar(&f.posicao, "posicao", "", "Position (positive integer)")
	cmd.Flags().StringVar(&f.status, "status", statusDefault, "ativo|inativo|arquivado")
}

// overlay writes every flag the user set over d.
func (f *draftFlags) overlay(cmd *cobra.Command, d model.Draft) model.Draft {
	if cmd.Flags().Changed("nome") {
		d.Nome = f.nome
	}
	if cmd.Flags().Changed("codigo") {
		d.Codigo = f.codigo
	}
	if cmd.Flags().Changed("posicao") {
		d.Posicao = f.posicao
	}
	if cmd.Flags().Changed("status") {
		d.Status = strings.ToLower(strings.TrimSpace(f.status))
	}
	return d
}

func newCreateCmd(app *App) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stage",
		Example: strings.TrimSpace(`
etapas create --nome Triagem --codigo TRI --posicao 1
etapas create --nome Arquivo --codigo ARQ --posicao 9 --status arquivado
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctrl.OpenCreate()
			return submit(cmd, app, ctrl, flags.overlay(cmd, model.NewDraft()))
		},
	}
	flags.register(cmd, string(model.DefaultStatus))
	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a stage (unset flags keep their current values)",
		Example: strings.TrimSpace(`
etapas update 6650f0c2 --posicao 3
etapas update 6650f0c2 --status inativo
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctrl.LoadAll(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			current, ok := ctrl.Find(id)
			if !ok {
				return writeErr(cmd, errNotFound("etapa", id))
			}
			ctrl.OpenEdit(current)
			return submit(cmd, app, ctrl, flags.overlay(cmd, model.DraftFromEtapa(current)))
		},
	}
	flags.register(cmd, "")
	return cmd
}

func submit(cmd *cobra.Command, app *App, ctrl *workflow.Controller, d model.Draft) error {
	saved, err := ctrl.Submit(cmd.Context(), d)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, etapasEnvelope{Data: saved, rows: etapaRows{saved}})
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if err := ctrl.Remove(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"deleted": id, "remaining": len(ctrl.Records())},
			})
		},
	}
}
