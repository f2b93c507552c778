package craft

import (
	"fmt"
	"strconv"
	"strings"

	"craftworks.ai/internal/sim/inventory"
)

// Request is a craft-in-hand request as delivered by the host. Params pin
// the slot each behavior draws from, in behavior order; "" or "*" leaves a
// behavior on automatic selection.
type Request struct {
	Actor    string   `json:"actor"`
	RecipeID string   `json:"recipe_id"`
	Params   []string `json:"params,omitempty"`
	Count    int      `json:"count"`
}

// Submit resolves and crafts a request against the actor's inputs. Callers
// must run it on the same goroutine that owns in, with no yield between
// validation and commit.
func (r *Registry) Submit(in inventory.Inputs, req Request) (Output, error) {
	if r.disabled {
		return Output{}, ErrFeatureDisabled
	}
	rec, err := r.Get(req.RecipeID)
	if err != nil {
		return Output{}, err
	}
	sel, err := ParseSelection(req.Params, len(rec.behaviors))
	if err != nil {
		return Output{}, err
	}
	return rec.CraftSelected(req.Actor, in, req.Count, sel)
}

func ParseSelection(params []string, behaviors int) (Selection, error) {
	if len(params) == 0 {
		return nil, nil
	}
	if len(params) > behaviors {
		return nil, fmt.Errorf("%w: %d params for %d behaviors", ErrBadParams, len(params), behaviors)
	}
	sel := make(Selection, len(params))
	for i, p := range params {
		p = strings.TrimSpace(p)
		if p == "" || p == "*" {
			sel[i] = -1
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: param %d %q", ErrBadParams, i, p)
		}
		sel[i] = n
	}
	return sel, nil
}
