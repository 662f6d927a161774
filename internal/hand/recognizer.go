package hand

import (
	"context"
	"fmt"
	"image"
	"strings"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/match"
	"github.com/wetcoding/cardrecognizer/internal/region"
	"github.com/wetcoding/cardrecognizer/internal/trace"
)

// SlotResult is the outcome for one value or suit region.
type SlotResult struct {
	match.Result
	Error string `json:"error,omitempty"`
	err   error
}

// Err returns the error that prevented a match, if any.
func (s SlotResult) Err() error { return s.err }

// Card is one occupied slot.
type Card struct {
	Slot  int        `json:"slot"`
	Value SlotResult `json:"value"`
	Suit  SlotResult `json:"suit"`
}

// Hand lists the occupied slots from left to right.
type Hand struct {
	Cards []Card `json:"cards"`
}

// String concatenates recognized labels, value before suit. Unrecognized regions are left out.
func (h Hand) String() string {
	var sb strings.Builder
	for _, c := range h.Cards {
		for _, r := range []SlotResult{c.Value, c.Suit} {
			if r.Matched {
				sb.WriteString(r.Label)
			}
		}
	}
	return sb.String()
}

// Unrecognized counts value and suit regions without a match.
func (h Hand) Unrecognized() int {
	n := 0
	for _, c := range h.Cards {
		if !c.Value.Matched {
			n++
		}
		if !c.Suit.Matched {
			n++
		}
	}
	return n
}

// Recognizer extracts slots from a hand image and matches them.
type Recognizer struct {
	layout  Layout
	matcher *match.Matcher
}

// NewRecognizer creates a recognizer for layout.
func NewRecognizer(layout Layout, matcher *match.Matcher) *Recognizer {
	return &Recognizer{layout: layout, matcher: matcher}
}

// Layout returns the geometry in use.
func (r *Recognizer) Layout() Layout { return r.layout }

// Recognize reads every occupied slot. The image must be exactly Layout.Size,
// otherwise a DIMENSION_MISMATCH error is returned. Scanning stops at the first
// slot whose anchor pixel is not card paper. Failures of a single region are
// reported in its SlotResult; only context cancellation aborts the hand.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (Hand, error) {
	full := region.New(img)
	if full.Size() != r.layout.Size {
		return Hand{}, apperrors.Newf(apperrors.CodeDimensionMismatch, "image is %dx%d, want %dx%d",
			full.Width(), full.Height(), r.layout.Size.X, r.layout.Size.Y)
	}

	ctx, span := trace.StartSpan(ctx, "recognize_hand")
	defer span.End()

	var h Hand
	for i := 0; i < r.layout.Slots; i++ {
		if err := ctx.Err(); err != nil {
			return h, err
		}
		a := r.layout.Anchor(i)
		if !r.layout.Card.Contains(full.At(a.X, a.Y)) {
			break
		}
		h.Cards = append(h.Cards, Card{
			Slot:  i,
			Value: r.slot(ctx, full, r.layout.ValueRect(i), "value", i),
			Suit:  r.slot(ctx, full, r.layout.SuitRect(i), "suit", i),
		})
	}

	span.SetAttr("cards", len(h.Cards))
	span.SetAttr("unrecognized", h.Unrecognized())
	return h, nil
}

func (r *Recognizer) slot(ctx context.Context, full *region.Region, rect image.Rectangle, kind string, i int) SlotResult {
	sub, err := full.Sub(rect)
	if err == nil {
		var res match.Result
		if res, err = r.matcher.Match(ctx, sub); err == nil {
			return SlotResult{Result: res}
		}
	}

	trace.Logger(ctx).Debug("slot not matched", "slot", i, "kind", kind, "code", apperrors.CodeOf(err), "error", err)
	return SlotResult{Error: fmt.Sprintf("%s: %v", apperrors.CodeOf(err), err), err: err}
}
