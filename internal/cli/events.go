package cli

import (
	"strings"

	"ruleboard/internal/model"
	"ruleboard/internal/store"

	"github.com/spf13/cobra"
)

func storeAt(dir string) store.Store { return store.Store{Dir: dir} }

func newEventsCmd(app *App) *cobra.Command {
	var (
		limit  int
		typ    string
		entity string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the workspace mutation log (oldest first)",
		Example: strings.TrimSpace(`
ruleboard events --limit 20
ruleboard events --type instance. --entity copy-7f3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Filters apply before the limit, so read everything when filtering.
			readLimit := limit
			if typ != "" || entity != "" {
				readLimit = 0
			}
			evs, err := storeAt(dir).ReadEventsTail(readLimit)
			if err != nil {
				return writeErr(cmd, err)
			}
			evs = filterEvents(evs, typ, entity)
			if limit > 0 && len(evs) > limit {
				evs = evs[len(evs)-limit:]
			}
			return writeOut(cmd, app, map[string]any{"data": evs})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 200, "Max events to return (0 = all)")
	cmd.Flags().StringVar(&typ, "type", "", "Only events whose type starts with this prefix")
	cmd.Flags().StringVar(&entity, "entity", "", "Only events for this entity id")
	return cmd
}

func filterEvents(evs []model.Event, typePrefix, entityID string) []model.Event {
	typePrefix = strings.TrimSpace(typePrefix)
	entityID = strings.TrimSpace(entityID)
	if typePrefix == "" && entityID == "" {
		return evs
	}
	out := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		if typePrefix != "" && !strings.HasPrefix(ev.Type, typePrefix) {
			continue
		}
		if entityID != "" && ev.EntityID != entityID {
			continue
		}
		out = append(out, ev)
	}
	return out
}
