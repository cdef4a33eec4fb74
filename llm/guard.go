package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SamuelRCrider/redact-go/core"
)

// PromptGuard re-scans an outgoing prompt and refuses it when any detector
// still finds sensitive data. Replacement tokens never trigger it.
type PromptGuard struct {
	detectors []core.Detector
}

// NewPromptGuard creates a guard over the given detectors
func NewPromptGuard(detectors ...core.Detector) *PromptGuard {
	return &PromptGuard{detectors: detectors}
}

// Check returns the categories found in prompt, sorted, or nil when clean
func (g *PromptGuard) Check(ctx context.Context, prompt string) ([]core.Category, error) {
	if g == nil {
		return nil, nil
	}

	seen := make(map[core.Category]bool)
	for _, d := range g.detectors {
		detection, err := d.Detect(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("prompt guard %s: %w", d.ID(), err)
		}
		for _, s := range detection.Spans {
			seen[s.Label] = true
		}
	}

	if len(seen) == 0 {
		return nil, nil
	}
	found := make([]core.Category, 0, len(seen))
	for c := range seen {
		found = append(found, c)
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found, nil
}

func joinCategories(cats []core.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
