package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// AnswerSynthesizer turns retrieved chunks into a structured answer with
// citations via a fixed prompt contract. The parser degrades gracefully:
// a model response that ignores the contract becomes a citation-free
// answer instead of an error.
type AnswerSynthesizer struct {
	generator ports.TextGenerator
	genCfg    ports.GenerateConfig
}

func NewAnswerSynthesizer(generator ports.TextGenerator, genCfg ports.GenerateConfig) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		generator: generator,
		genCfg:    genCfg,
	}
}

func (s *AnswerSynthesizer) Synthesize(ctx context.Context, query string, results []domain.SearchResult) (string, []domain.Citation, error) {
	raw, err := s.generator.Generate(ctx, buildAnswerPrompt(query, results), s.genCfg)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrProvider, "generate answer", err)
	}

	answer, citations := parseAnswer(raw)
	resolveCitationIDs(citations, results)
	return answer, citations, nil
}

func buildAnswerPrompt(query string, results []domain.SearchResult) string {
	var contextBuilder strings.Builder
	for _, result := range results {
		name := result.Metadata["document_name"]
		if name == "" {
			name = result.Metadata["document_id"]
		}
		page := result.Metadata["page_number"]
		if page == "" {
			page = "unknown"
		}
		contextBuilder.WriteString(fmt.Sprintf("## Document: %s, Page: %s\n%s\n\n", name, page, result.Content))
	}

	return fmt.Sprintf(`You are an assistant that answers strictly from the supplied document content.

CONTEXT:
%s
USER QUERY: %s

Answer the query using ONLY the information in CONTEXT. If the context is
insufficient, say so directly.

Respond in exactly this structure:

Answer:
<your answer>

Citations:
- [<document name>, Page <n>]: "<exact quoted text from the document>"

Every major point needs at least one citation line in that format.
`, contextBuilder.String(), query)
}

var citationLine = regexp.MustCompile(`^\[(.*?)(?:,\s*Page\s*(\d+))?\]:\s*"(.*)$`)

// parseAnswer splits the model output into the answer body and parsed
// citations. Missing section markers mean the whole output is the answer.
func parseAnswer(raw string) (string, []domain.Citation) {
	raw = strings.TrimSpace(raw)

	_, afterAnswer, found := strings.Cut(raw, "Answer:")
	if !found {
		return raw, nil
	}

	answer, citationsPart, found := strings.Cut(afterAnswer, "Citations:")
	answer = strings.TrimSpace(answer)
	if !found {
		return answer, nil
	}
	return answer, parseCitations(citationsPart)
}

// parseCitations is line oriented and tolerant: a citation whose quote is
// not closed on its own line keeps accumulating following lines until the
// next bracketed citation starts; lines matching nothing are skipped.
func parseCitations(section string) []domain.Citation {
	var citations []domain.Citation
	var current *domain.Citation
	var quoteParts []string

	flush := func() {
		if current == nil {
			return
		}
		current.Quote = strings.TrimSuffix(strings.Join(quoteParts, " "), `"`)
		citations = append(citations, *current)
		current = nil
		quoteParts = nil
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidate := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if strings.HasPrefix(candidate, "[") {
			if m := citationLine.FindStringSubmatch(candidate); m != nil {
				flush()
				page := 0
				if m[2] != "" {
					page, _ = strconv.Atoi(m[2])
				}
				current = &domain.Citation{
					DocumentName: strings.TrimSpace(m[1]),
					Page:         page,
				}
				quoteParts = append(quoteParts, strings.TrimSpace(m[3]))
				if strings.HasSuffix(m[3], `"`) {
					flush()
				}
				continue
			}
			// Malformed bracketed line: skip rather than abort.
			continue
		}
		if current != nil {
			quoteParts = append(quoteParts, line)
			if strings.HasSuffix(line, `"`) {
				flush()
			}
		}
	}
	flush()
	return citations
}

func resolveCitationIDs(citations []domain.Citation, results []domain.SearchResult) {
	if len(citations) == 0 {
		return
	}
	idsByName := make(map[string]string, len(results))
	for _, result := range results {
		name := result.Metadata["document_name"]
		id := result.Metadata["document_id"]
		if name != "" && id != "" {
			idsByName[name] = id
		}
	}
	for i := range citations {
		citations[i].DocumentID = idsByName[citations[i].DocumentName]
	}
}
