package snapshotfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// blocksFunc expands blocks(days, first, last) into every block token of those days
// between the two periods, inclusive.
var blocksFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "days", Type: cty.List(cty.Number)},
		{Name: "first", Type: cty.Number},
		{Name: "last", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.String)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var days []int
		if err := gocty.FromCtyValue(args[0], &days); err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		var first, last int
		if err := gocty.FromCtyValue(args[1], &first); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		if err := gocty.FromCtyValue(args[2], &last); err != nil {
			return cty.NilVal, function.NewArgError(2, err)
		}
		if first < 1 || last < first {
			return cty.NilVal, fmt.Errorf("period range %d..%d is invalid", first, last)
		}

		var tokens []cty.Value
		for _, day := range days {
			if day < 1 || day > 7 {
				return cty.NilVal, function.NewArgErrorf(0, "day %d is outside 1..7", day)
			}
			for period := first; period <= last; period++ {
				tokens = append(tokens, cty.StringVal(scheduler.Slot{Day: day, Period: period}.String()))
			}
		}
		if len(tokens) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		return cty.ListVal(tokens), nil
	},
})

// evalContext exposes weekday constants MON..SUN and the helper functions to snapshot files.
func evalContext() *hcl.EvalContext {
	days := map[string]cty.Value{}
	for day := 1; day <= 7; day++ {
		token := scheduler.Slot{Day: day, Period: 1}.String()
		days[token[:3]] = cty.NumberIntVal(int64(day))
	}
	return &hcl.EvalContext{
		Variables: days,
		Functions: map[string]function.Function{
			"blocks":   blocksFunc,
			"concat":   stdlib.ConcatFunc,
			"distinct": stdlib.DistinctFunc,
			"range":    stdlib.RangeFunc,
		},
	}
}
