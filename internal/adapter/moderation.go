package adapter

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// Moderation judgments
const (
	JudgmentCompliant = "compliant"
	JudgmentViolation = "violation"
)

// ModerationResult is the outcome of a moderation review
type ModerationResult struct {
	Judgment         string
	Reasoning        string
	OffendingPostIDs []string
}

// Moderator reviews posts against a rules document using a language model
type Moderator struct {
	llm LLM
}

// NewModerator creates a moderator backed by llm
func NewModerator(llm LLM) *Moderator {
	return &Moderator{llm: llm}
}

// FormatPosts renders posts as "POSTID::AUTHOR: content" lines
func FormatPosts(posts []models.ModerationPost) string {
	var b strings.Builder
	for _, p := range posts {
		content := strings.Join(strings.Fields(p.Content), " ")
		fmt.Fprintf(&b, "%s::%s: %s\n", p.ID, p.Author, content)
	}
	return b.String()
}

func moderationPrompt(rules string, posts []models.ModerationPost) string {
	return fmt.Sprintf(`You are a community moderator. Review the conversation against the rules.

RULES:
%s

CONVERSATION (one post per line, formatted POSTID::AUTHOR: content):
%s
Reply in exactly this format:
JUDGMENT: compliant or violation
REASONING: one short paragraph
FLAGGED:
one line per offending post, copied verbatim in the POSTID::AUTHOR: content format, or nothing if none
`, strings.TrimSpace(rules), FormatPosts(posts))
}

// Review asks the model for a judgment and extracts the offending post ids.
// Ids the model invents are dropped.
func (m *Moderator) Review(ctx context.Context, rules string, posts []models.ModerationPost) (*ModerationResult, error) {
	if strings.TrimSpace(rules) == "" {
		return nil, apperrors.NewValidationError("rules", "must not be empty")
	}
	if len(posts) == 0 {
		return nil, apperrors.NewValidationError("posts", "must not be empty")
	}

	out, err := m.llm.Generate(ctx, moderationPrompt(rules, posts))
	if err != nil {
		return nil, err
	}
	return ParseModeration(out, posts), nil
}

// ParseModeration parses a model reply in the format requested by Review
func ParseModeration(reply string, posts []models.ModerationPost) *ModerationResult {
	submitted := make(map[string]bool, len(posts))
	for _, p := range posts {
		submitted[p.ID] = true
	}

	result := &ModerationResult{OffendingPostIDs: []string{}}
	seen := map[string]bool{}
	var reasoning []string
	inReasoning := false

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "JUDGMENT:"):
			inReasoning = false
			result.Judgment = normalizeJudgment(trimmed[len("JUDGMENT:"):])
			continue
		case strings.HasPrefix(upper, "REASONING:"):
			inReasoning = true
			if r := strings.TrimSpace(trimmed[len("REASONING:"):]); r != "" {
				reasoning = append(reasoning, r)
			}
			continue
		case strings.HasPrefix(upper, "FLAGGED:"):
			inReasoning = false
			continue
		}

		if id, ok := flaggedPostID(trimmed); ok {
			inReasoning = false
			if submitted[id] && !seen[id] {
				seen[id] = true
				result.OffendingPostIDs = append(result.OffendingPostIDs, id)
			}
			continue
		}

		if inReasoning && trimmed != "" {
			reasoning = append(reasoning, trimmed)
		}
	}

	result.Reasoning = strings.Join(reasoning, " ")
	if result.Judgment == "" {
		if len(result.OffendingPostIDs) > 0 {
			result.Judgment = JudgmentViolation
		} else {
			result.Judgment = JudgmentCompliant
		}
	}
	return result
}

// flaggedPostID extracts POSTID from "POSTID::AUTHOR: content", tolerating list markers
func flaggedPostID(line string) (string, bool) {
	line = strings.TrimLeft(line, "-*• \t")
	i := strings.Index(line, "::")
	if i <= 0 {
		return "", false
	}
	id := strings.Trim(strings.TrimSpace(line[:i]), "`\"'")
	if id == "" || strings.ContainsAny(id, " \t") {
		return "", false
	}
	return id, true
}

func normalizeJudgment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "violation"), strings.HasPrefix(s, "non-compliant"), strings.HasPrefix(s, "noncompliant"):
		return JudgmentViolation
	case strings.HasPrefix(s, "compliant"):
		return JudgmentCompliant
	default:
		return s
	}
}
