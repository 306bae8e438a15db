package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/persona"
)

// Recommendation is the outcome of a panel classification. IDs is always a
// usable panel.
type Recommendation struct {
	IDs []string

	// Fallback is true when IDs is the registry default panel.
	Fallback bool

	// Err explains why the fallback was used.
	Err error
}

// Recommend asks the classifier for up to persona.PanelSize persona IDs suited
// to problem. Any failure, including unknown or too few IDs, yields the
// registry's default panel.
func (s *Service) Recommend(ctx context.Context, problem string) Recommendation {
	if s.opts.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ClassifyTimeout)
		defer cancel()
	}

	prompt := buildClassifyPrompt(problem, s.registry.Catalog())

	var raw string
	err := s.doWithRetry(ctx, func() error {
		var err error
		raw, err = s.backend.ClassifyIDs(ctx, prompt)
		return err
	})
	if err != nil {
		s.logger.Warn("panel recommendation failed, using defaults", zap.Error(err))
		return s.fallback(err)
	}

	ids, err := ParseRecommendation(raw, s.registry)
	if err != nil {
		s.logger.Warn("unusable panel recommendation, using defaults",
			zap.String("content", truncateForLog(raw, 120)),
			zap.Error(err))
		return s.fallback(err)
	}

	s.logger.Debug("panel recommended", zap.Strings("ids", ids))
	return Recommendation{IDs: ids}
}

func (s *Service) fallback(err error) Recommendation {
	return Recommendation{IDs: s.registry.Defaults(), Fallback: true, Err: err}
}

var codeFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if m := codeFenceRe.FindStringSubmatch(content); len(m) > 1 {
			return m[1]
		}
	}
	return content
}

// ParseRecommendation decodes a JSON array of persona IDs and validates it
// against reg. Duplicates are dropped and the list is cut to PanelSize.
// It fails on malformed JSON, any unknown ID, or fewer unique IDs than
// min(PanelSize, reg.Len()).
func ParseRecommendation(raw string, reg *persona.Registry) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &ids); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, persona.PanelSize)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !reg.Has(id) {
			return nil, fmt.Errorf("unknown persona id %q", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if len(out) < persona.PanelSize {
			out = append(out, id)
		}
	}

	if want := min(persona.PanelSize, reg.Len()); len(out) < want {
		return nil, fmt.Errorf("got %d persona ids, want %d", len(out), want)
	}
	return out, nil
}

func buildClassifyPrompt(problem, catalog string) string {
	return fmt.Sprintf(`分析以下用户问题: "%s"。
从下方的大师列表中，选出最适合提供建议的 %d 位大师。
大师列表:
%s

只返回一个由大师 ID 组成的 JSON 字符串数组，不要使用 markdown 代码块，不要附加任何说明。`,
		problem, persona.PanelSize, catalog)
}

func truncateForLog(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
