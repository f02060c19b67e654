package selector

import (
	"errors"
	"math"

	"github.com/mcdev12/wheelraffle/go/internal/models"
)

const (
	// DisplaySize is the number of wedges on the wheel.
	DisplaySize = 10
	// WedgeDegrees is the arc covered by one wedge.
	WedgeDegrees = 360 / DisplaySize
	// JitterDegrees bounds the random offset inside the winning wedge.
	JitterDegrees = 15
)

var (
	// ErrEmptyPool is returned when there is nobody to draw from.
	ErrEmptyPool = errors.New("selector: eligible pool is empty")
	// ErrInvalidDuration is returned for a non-positive or non-finite spin duration.
	ErrInvalidDuration = errors.New("selector: duration must be a positive number of seconds")
)

// SelectionResult is the precomputed outcome of one wheel spin.
type SelectionResult struct {
	DisplaySequence       [DisplaySize]models.Participant `json:"display_sequence"`
	WinnerIndex           int                             `json:"winner_index"`
	Winner                models.Participant              `json:"winner"`
	RotationTargetDegrees int                             `json:"rotation_target_degrees"`
}

// Select draws the wheel contents and the winner from pool.
//
// Each of the DisplaySize wedges is filled by an independent uniform draw with
// replacement, so small pools repeat. The winner index is drawn independently of
// the wedge contents, and the rotation target lands that wedge under the pointer
// after at least MinFullTurns(duration) whole turns.
func Select(pool []models.Participant, duration float64, rng RandomSource) (SelectionResult, error) {
	if len(pool) == 0 {
		return SelectionResult{}, ErrEmptyPool
	}
	if !validDuration(duration) {
		return SelectionResult{}, ErrInvalidDuration
	}

	var res SelectionResult
	for i := range res.DisplaySequence {
		res.DisplaySequence[i] = pool[rng.Intn(len(pool))]
	}
	res.WinnerIndex = rng.Intn(DisplaySize)
	res.Winner = res.DisplaySequence[res.WinnerIndex]
	res.RotationTargetDegrees = RotationTarget(res.WinnerIndex, rng.Float64(), duration)

	return res, nil
}

// MinFullTurns is the number of whole turns the wheel makes before it settles.
func MinFullTurns(duration float64) int {
	return int(math.Ceil(duration / 2))
}

// RotationTarget computes the final CSS rotation in degrees. jitter must be in [0, 1).
// The result is negative: the wheel turns counter-clockwise under a fixed pointer.
func RotationTarget(winnerIndex int, jitter float64, duration float64) int {
	offset := int(math.Floor(jitter * JitterDegrees))
	return -(winnerIndex*WedgeDegrees + offset + MinFullTurns(duration)*360)
}

// LandingWedge returns the wedge index under the pointer for a rotation target.
func LandingWedge(rotation int) int {
	deg := rotation % 360
	if deg < 0 {
		deg = -deg
	}
	return deg / WedgeDegrees
}

func validDuration(duration float64) bool {
	return duration > 0 && !math.IsInf(duration, 0) && !math.IsNaN(duration)
}
