// Package curriculum joins the static competence tree with a learner's
// progress overlay. Read side only; no write path exists here.
package curriculum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lernpfad/backend/internal/store"
)

// StatusNotStarted is the overlay default for nodes without progress.
const StatusNotStarted = "not_started"

// Node is one curriculum entry with its per-user overlay attached.
type Node struct {
	Code        string  `json:"code"`
	Fachbereich string  `json:"fachbereich"`
	Level       string  `json:"level"`
	ParentCode  *string `json:"parent_code,omitempty"`
	Zyklus      *int    `json:"zyklus,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`

	// Apps lists the practice apps covering this node, from the static
	// code-prefix table.
	Apps []string `json:"apps"`

	Mastery int    `json:"mastery"`
	Status  string `json:"status"`
}

// appsByCodePrefix maps curriculum code prefixes to the apps that train
// them. A node picks up an entry when its code sits on the same branch
// as the prefix, above or below.
var appsByCodePrefix = map[string][]string{
	"D.1":   {"hoerverstehen"},
	"D.2":   {"leseverstehen"},
	"D.4":   {"rechtschreibung", "grossschreibung"},
	"D.5":   {"wortarten", "satzglieder", "zeitformen"},
	"MA.1":  {"kopfrechnen", "zahlenstrahl"},
	"MA.2":  {"geometrie"},
	"MA.3":  {"sachrechnen"},
	"NMG.4": {"uhrzeit"},
}

// Service aggregates the curriculum view.
type Service struct {
	curriculum store.CurriculumRepo
}

// NewService creates a curriculum service.
func NewService(st *store.Store) *Service {
	return &Service{curriculum: st.CurriculumRepo()}
}

// Tree returns the curriculum nodes matching the optional cycle and
// subject filters, each with its app list and the user's mastery
// overlay. An empty userID yields the anonymous view with defaults.
func (s *Service) Tree(ctx context.Context, userID string, maxZyklus *int, fachbereich string) ([]Node, error) {
	var (
		nodes   []store.CurriculumNode
		overlay map[string]store.CurriculumProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		nodes, err = s.curriculum.Nodes(gctx, maxZyklus, fachbereich)
		return err
	})
	if userID != "" {
		g.Go(func() (err error) {
			overlay, err = s.curriculum.ProgressForUser(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	return lo.Map(nodes, func(n store.CurriculumNode, _ int) Node {
		out := Node{
			Code:        n.Code,
			Fachbereich: n.Fachbereich,
			Level:       n.Level,
			ParentCode:  n.ParentCode,
			Zyklus:      n.Zyklus,
			Title:       n.Title,
			Description: n.Description,
			Apps:        appsForCode(n.Code),
			Status:      StatusNotStarted,
		}
		if p, ok := overlay[n.Code]; ok {
			out.Mastery = p.MasteryLevel
			out.Status = p.Status
		}
		return out
	}), nil
}

// appsForCode collects the apps of every prefix on the node's branch.
// "D.5.A" matches the "D.5" entry; "D" matches every "D.*" entry.
func appsForCode(code string) []string {
	seen := map[string]struct{}{}
	var apps []string
	for prefix, names := range appsByCodePrefix {
		if !onSameBranch(code, prefix) {
			continue
		}
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			apps = append(apps, name)
		}
	}
	sort.Strings(apps)
	if apps == nil {
		apps = []string{}
	}
	return apps
}

func onSameBranch(code, prefix string) bool {
	return segmentPrefix(code, prefix) || segmentPrefix(prefix, code)
}

// segmentPrefix reports whether p is a whole-segment prefix of s, so
// "D.1" covers "D.1.A" but not "D.11".
func segmentPrefix(s, p string) bool {
	if !strings.HasPrefix(s, p) {
		return false
	}
	return len(s) == len(p) || s[len(p)] == '.'
}
