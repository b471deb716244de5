// Package budget finds the highest-fidelity encoding of an image that fits a
// byte budget by walking an encoder parameter from best to worst.
//
// Each step re-encodes the full image from scratch. The domains are small
// (at most 16 JPEG qualities, 10 PNG levels) so the search is bounded by a
// handful of full encodes.
//
// When no step fits, the last attempt is returned with MetBudget false. For
// JPEG that is the lowest quality and the smallest file. For PNG the walk
// goes from level 9 (strongest compression) to level 0, so the fallback is
// the level-0 encode, usually the largest file tried. Callers wanting the
// smallest PNG can pick it from Attempts.
package budget

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/AnyUserName/imgfit-cli/internal/encoder"
	"github.com/AnyUserName/imgfit-cli/internal/profile"
)

// Attempt records the outcome of one encode during a search.
type Attempt struct {
	Param int   `json:"param"`
	Size  int64 `json:"size"`
}

// Result is the chosen encoding.
type Result struct {
	Format    string
	Data      []byte
	Size      int64   // bytes
	SizeKB    float64 // Size / 1024
	Param     int     // quality or compression level that produced Data
	MetBudget bool
	Attempts  []Attempt
}

// EncodeOnce encodes img once with param. It holds no state between calls.
func EncodeOnce(img image.Image, enc encoder.Encoder, param int) ([]byte, error) {
	return enc.Encode(img, param)
}

// Search walks domain from Max to Min and returns the first encoding whose
// size is at most budgetBytes, or the last attempt if none fits. Codec
// failures abort the search with the encoder's error.
func Search(img image.Image, enc encoder.Encoder, domain profile.Range, budgetBytes int64) (Result, error) {
	steps := domain.Steps()
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("empty %s parameter range %+v", enc.Format(), domain)
	}
	if budgetBytes <= 0 {
		return Result{}, fmt.Errorf("budget must be positive, got %d bytes", budgetBytes)
	}

	res := Result{Format: enc.Format(), Attempts: make([]Attempt, 0, len(steps))}
	for _, param := range steps {
		data, err := EncodeOnce(img, enc, param)
		if err != nil {
			return Result{}, err
		}
		size := int64(len(data))
		res.Attempts = append(res.Attempts, Attempt{Param: param, Size: size})
		res.Data, res.Size, res.Param = data, size, param

		slog.Debug("budget attempt",
			"format", res.Format, "param", param, "size", size, "budget", budgetBytes)

		if size <= budgetBytes {
			res.MetBudget = true
			break
		}
	}
	res.SizeKB = float64(res.Size) / 1024
	return res, nil
}

// SearchFormat resolves format through reg and picks the domain from prof.
func SearchFormat(img image.Image, format string, reg *encoder.Registry, prof profile.Profile) (Result, error) {
	enc, err := reg.Resolve(format)
	if err != nil {
		return Result{}, err
	}
	return Search(img, enc, Domain(enc.Format(), prof), prof.BudgetBytes())
}

// Domain returns the parameter range prof defines for a canonical format.
func Domain(format string, prof profile.Profile) profile.Range {
	if format == "png" {
		return prof.PNGLevel
	}
	return prof.JPEGQuality
}
