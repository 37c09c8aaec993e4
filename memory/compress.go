package memory

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/comrude/comrude/messages"
)

// Compressor shrinks a turn window back under its budgets by absorbing
// the oldest turns into the cumulative context residue. It is a pure
// transformation: inputs are never mutated, and running it again on its
// own output is a no-op.
type Compressor struct {
	cfg Config
}

func NewCompressor(cfg Config) *Compressor {
	return &Compressor{cfg: cfg}
}

// maxDigestChars caps the length of any residue item so absorbing a
// turn always reduces the token total for realistically sized turns.
const maxDigestChars = 480

// overBudget reports whether either budget is exceeded.
func (c *Compressor) overBudget(turns []ConversationTurn, cumulative []messages.ContextItem) bool {
	if len(turns) > c.cfg.MaxContextTurns {
		return true
	}
	return TurnsTokens(turns)+ItemsTokens(cumulative) > c.cfg.MaxContextTokens
}

// Compress applies the eviction policy until both budgets hold or no
// further reduction is possible. Stages, in order: diff compression of
// evicted turns against an adjacent similar turn, lossy summarization of
// the rest, then compaction of the residue itself. With both stages
// disabled, excess turns are dropped outright from the front and token
// overflow is accepted.
//
// On success the returned slices replace the inputs. If a full pass
// still cannot satisfy the budgets, the inputs are returned unchanged
// alongside a CompressionInvariantError.
func (c *Compressor) Compress(turns []ConversationTurn, cumulative []messages.ContextItem) ([]ConversationTurn, []messages.ContextItem, error) {
	if !c.overBudget(turns, cumulative) {
		return turns, cumulative, nil
	}

	out := slices.Clone(turns)
	residue := slices.Clone(cumulative)

	if !c.cfg.EnableDiffCompression && !c.cfg.EnableSummarization {
		if excess := len(out) - c.cfg.MaxContextTurns; excess > 0 {
			out = out[excess:]
		}
		return out, residue, nil
	}

	// Stage one: bring the turn count under budget.
	if excess := len(out) - c.cfg.MaxContextTurns; excess > 0 {
		evicted := out[:excess]
		out = out[excess:]
		residue = c.absorb(evicted, out, residue)
	}

	// Stage two: keep evicting the oldest turn until the token budget
	// holds. At least one turn always survives.
	for TurnsTokens(out)+ItemsTokens(residue) > c.cfg.MaxContextTokens && len(out) > 1 {
		residue = c.absorb(out[:1], out[1:], residue)
		out = out[1:]
	}

	// Stage three: the residue itself may have grown past the budget.
	if TurnsTokens(out)+ItemsTokens(residue) > c.cfg.MaxContextTokens && len(residue) > 1 {
		residue = []messages.ContextItem{compactResidue(residue)}
	}

	if c.overBudget(out, residue) {
		return turns, cumulative, &CompressionInvariantError{
			Turns:     len(out),
			Tokens:    TurnsTokens(out) + ItemsTokens(residue),
			MaxTurns:  c.cfg.MaxContextTurns,
			MaxTokens: c.cfg.MaxContextTokens,
		}
	}
	return out, residue, nil
}

// absorb converts evicted turns into residue items. Each turn is diffed
// against the turn that follows it chronologically when the two are
// similar enough; the rest are grouped into one lossy summary. With
// summarization off, undiffable turns leave only a drop marker.
func (c *Compressor) absorb(evicted, surviving []ConversationTurn, residue []messages.ContextItem) []messages.ContextItem {
	var pending []ConversationTurn
	for i, turn := range evicted {
		var next *ConversationTurn
		if i+1 < len(evicted) {
			next = &evicted[i+1]
		} else if len(surviving) > 0 {
			next = &surviving[0]
		}
		if c.cfg.EnableDiffCompression && next != nil &&
			similar(turn.AssistantResponse.Text(), next.AssistantResponse.Text()) {
			residue = append(residue, diffItem(turn, *next))
			continue
		}
		pending = append(pending, turn)
	}
	if len(pending) == 0 {
		return residue
	}
	if c.cfg.EnableSummarization {
		return append(residue, summaryItem(pending))
	}
	for _, turn := range pending {
		residue = append(residue, dropItem(turn))
	}
	return residue
}

// similar is a heuristic, not a correctness invariant: word-set overlap
// of at least half the union.
func similar(a, b string) bool {
	aw := wordSet(a)
	bw := wordSet(b)
	if len(aw) == 0 || len(bw) == 0 {
		return false
	}
	shared := 0
	for w := range aw {
		if _, ok := bw[w]; ok {
			shared++
		}
	}
	union := len(aw) + len(bw) - shared
	return shared*2 >= union
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,;:!?\"'()[]{}")] = struct{}{}
	}
	delete(set, "")
	return set
}

// diffItem replaces an absorbed turn with a structural delta marker
// against the adjacent similar turn.
func diffItem(turn, against ConversationTurn) messages.ContextItem {
	before := MessageTokens(turn.AssistantResponse)
	after := MessageTokens(against.AssistantResponse)
	item := messages.TextItem(fmt.Sprintf("DIFF: %d -> %d", before, after))
	item.Metadata = map[string]any{
		"turn_id":   turn.ID,
		"timestamp": turn.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	return item
}

// dropItem marks a turn that was evicted with neither stage applicable.
func dropItem(turn ConversationTurn) messages.ContextItem {
	item := messages.TextItem(fmt.Sprintf("DIFF: %d -> 0", TurnTokens(turn)))
	item.Metadata = map[string]any{"turn_id": turn.ID}
	return item
}

// summaryItem digests a group of turns into one lossy residue entry. It
// keeps the facts later turns are likely to lean on (action words, file
// paths, question counts) and discards the rest.
func summaryItem(turns []ConversationTurn) messages.ContextItem {
	var facts []string
	questions := 0
	for _, turn := range turns {
		user := turn.UserMessage.Text()
		questions += strings.Count(user, "?")
		if actions := actionWords(user); len(actions) > 0 {
			facts = append(facts, "user: "+strings.Join(actions, ", "))
		}
		if actions := actionWords(turn.AssistantResponse.Text()); len(actions) > 0 {
			facts = append(facts, "assistant: "+strings.Join(actions, ", "))
		}
		if paths := filePaths(user + " " + turn.AssistantResponse.Text()); len(paths) > 0 {
			facts = append(facts, "paths: "+strings.Join(paths, ", "))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[SUMMARY] Previous conversation containing %d turns", len(turns))
	if questions > 0 {
		fmt.Fprintf(&b, ", %d questions asked", questions)
	}
	if len(facts) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(facts, "; "))
	}
	content := b.String()
	if len(content) > maxDigestChars {
		content = content[:maxDigestChars]
	}

	item := messages.TextItem(content)
	item.Metadata = map[string]any{"turns_summarized": len(turns)}
	return item
}

// compactResidue collapses the whole residue into a single bounded
// digest when the residue itself breaches the token budget.
func compactResidue(residue []messages.ContextItem) messages.ContextItem {
	var b strings.Builder
	fmt.Fprintf(&b, "[SUMMARY] Compacted %d residue items", len(residue))
	sep := ": "
	for _, item := range residue {
		head := item.Content
		if cut := strings.IndexByte(head, '\n'); cut >= 0 {
			head = head[:cut]
		}
		if len(head) > 60 {
			head = head[:60]
		}
		if b.Len()+len(sep)+len(head) > maxDigestChars {
			break
		}
		b.WriteString(sep)
		b.WriteString(head)
		sep = "; "
	}
	item := messages.TextItem(b.String())
	item.Metadata = map[string]any{"items_compacted": len(residue)}
	return item
}

var actionPatterns = []string{
	"create", "build", "implement", "develop", "write", "generate",
	"fix", "debug", "solve", "resolve", "update", "modify", "change",
	"explain", "describe", "analyze", "review", "check", "test",
	"install", "configure", "setup", "deploy", "run", "execute",
	"read", "parse", "load", "save", "export", "import",
	"optimize", "improve", "refactor", "clean", "organize",
}

// actionWords picks out up to three verbs that describe what the
// message asked for or did.
func actionWords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, action := range actionPatterns {
		if strings.Contains(lower, action) {
			found = append(found, action)
		}
	}
	sort.Strings(found)
	if len(found) > 3 {
		found = found[:3]
	}
	return found
}

// filePaths picks out up to three path-looking tokens.
func filePaths(text string) []string {
	var paths []string
	for _, field := range strings.Fields(text) {
		token := strings.Trim(field, ".,;:!?\"'()[]{}")
		if strings.ContainsRune(token, '/') && len(token) > 1 {
			paths = append(paths, token)
			if len(paths) == 3 {
				break
			}
		}
	}
	return paths
}
