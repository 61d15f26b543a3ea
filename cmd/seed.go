package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lernpfad/backend/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalog and curriculum nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd, "")
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		if err := seedCatalog(ctx, st); err != nil {
			return err
		}
		if err := seedCurriculum(ctx, st); err != nil {
			return err
		}

		fmt.Println("Seeded demo catalog and curriculum into", dbPath)
		return nil
	},
}

type seedApp struct {
	app   store.App
	items []string
}

func seedCatalog(ctx context.Context, st *store.Store) error {
	apps := []seedApp{
		{
			app: store.App{
				Name:        "wortarten",
				Description: "Bestimme die Wortart eines Wortes",
				TaskSchema:  `{"word":"string","answer":"Nomen|Verb|Adjektiv"}`,
			},
			items: []string{
				`{"word":"Haus","answer":"Nomen"}`,
				`{"word":"laufen","answer":"Verb"}`,
				`{"word":"schnell","answer":"Adjektiv"}`,
				`{"word":"Garten","answer":"Nomen"}`,
				`{"word":"singen","answer":"Verb"}`,
			},
		},
		{
			app: store.App{
				Name:        "rechtschreibung",
				Description: "Wähle die richtige Schreibweise",
				TaskSchema:  `{"options":["string"],"correct_index":"integer"}`,
			},
			items: []string{
				`{"options":["Fahrrad","Farrad"],"correct_index":0}`,
				`{"options":["Schtraße","Straße"],"correct_index":1}`,
				`{"options":["Vogel","Fogel"],"correct_index":0}`,
			},
		},
		{
			app: store.App{
				Name:        "kopfrechnen",
				Description: "Rechne im Kopf",
				TaskSchema:  `{"question":"string","answer":"integer"}`,
			},
			items: []string{
				`{"question":"7 x 8","answer":56}`,
				`{"question":"45 + 38","answer":83}`,
				`{"question":"100 - 27","answer":73}`,
				`{"question":"9 x 6","answer":54}`,
			},
		},
		{
			app: store.App{
				Name:        "zeitformen",
				Description: "Setze den Satz in die verlangte Zeitform",
				TaskSchema:  `{"sentence":"string","tense":"string","answer":"string"}`,
			},
			items: []string{
				`{"sentence":"Ich gehe zur Schule.","tense":"Präteritum","answer":"Ich ging zur Schule."}`,
				`{"sentence":"Wir spielen Fußball.","tense":"Perfekt","answer":"Wir haben Fußball gespielt."}`,
			},
		},
	}

	for _, sa := range apps {
		appID, err := st.CatalogRepo().InsertApp(ctx, sa.app)
		if err != nil {
			return fmt.Errorf("insert app %s: %w", sa.app.Name, err)
		}
		for _, payload := range sa.items {
			_, err := st.CatalogRepo().InsertContent(ctx, store.ContentItem{
				AppID:   appID,
				Payload: json.RawMessage(payload),
			})
			if err != nil {
				return fmt.Errorf("insert content for %s: %w", sa.app.Name, err)
			}
		}
	}
	return nil
}

func seedCurriculum(ctx context.Context, st *store.Store) error {
	ptr := func(s string) *string { return &s }
	cycle := func(n int) *int { return &n }

	nodes := []store.CurriculumNode{
		{Code: "D", Fachbereich: "D", Level: "fachbereich", Title: "Deutsch"},
		{Code: "D.4", Fachbereich: "D", Level: "kompetenzbereich", ParentCode: ptr("D"), Zyklus: cycle(1), Title: "Schreiben", Description: "Rechtschreibregeln anwenden"},
		{Code: "D.4.A", Fachbereich: "D", Level: "kompetenz", ParentCode: ptr("D.4"), Zyklus: cycle(2), Title: "Orthografische Regeln nutzen"},
		{Code: "D.5", Fachbereich: "D", Level: "kompetenzbereich", ParentCode: ptr("D"), Zyklus: cycle(1), Title: "Sprache im Fokus", Description: "Grammatikbegriffe kennen und anwenden"},
		{Code: "D.5.A", Fachbereich: "D", Level: "kompetenz", ParentCode: ptr("D.5"), Zyklus: cycle(2), Title: "Wortarten bestimmen"},
		{Code: "MA", Fachbereich: "MA", Level: "fachbereich", Title: "Mathematik"},
		{Code: "MA.1", Fachbereich: "MA", Level: "kompetenzbereich", ParentCode: ptr("MA"), Zyklus: cycle(1), Title: "Zahl und Variable", Description: "Operationen verstehen und flexibel rechnen"},
		{Code: "MA.1.A", Fachbereich: "MA", Level: "kompetenz", ParentCode: ptr("MA.1"), Zyklus: cycle(2), Title: "Im Kopf rechnen"},
	}

	for _, n := range nodes {
		if err := st.CurriculumRepo().InsertNode(ctx, n); err != nil {
			return fmt.Errorf("insert node %s: %w", n.Code, err)
		}
	}
	return nil
}
