package waltz

import (
	"fmt"
	"math/rand/v2"
)

const (
	MinRoll  = 2
	MaxRoll  = 12
	Outcomes = MaxRoll - MinRoll + 1

	// Slots is the number of measures in a generated waltz.
	Slots = 16
)

// Table maps (slot, roll) to a 1-based corpus measure index. Each row is one
// output slot, each column one dice total from 2 to 12.
type Table [][Outcomes]int

// MozartTable is the measure table of Mozart's "Musikalisches Würfelspiel".
// Some corpus measures never appear in it.
var MozartTable = Table{
	{96, 32, 69, 40, 148, 104, 152, 119, 98, 3, 54},
	{22, 6, 95, 17, 74, 157, 60, 84, 142, 87, 130},
	{141, 128, 158, 113, 163, 27, 171, 114, 42, 165, 10},
	{41, 63, 13, 85, 45, 167, 53, 50, 156, 61, 103},
	{105, 146, 153, 161, 80, 154, 99, 140, 75, 135, 28},
	{122, 46, 55, 2, 97, 68, 133, 86, 129, 47, 37},
	{11, 134, 110, 159, 36, 118, 21, 169, 62, 147, 106},
	{30, 81, 24, 100, 107, 91, 127, 94, 123, 33, 5},
	{70, 117, 66, 90, 25, 138, 16, 120, 65, 102, 35},
	{121, 39, 136, 176, 143, 71, 155, 88, 77, 4, 20},
	{26, 126, 15, 7, 64, 150, 57, 48, 19, 31, 108},
	{9, 56, 132, 34, 125, 29, 175, 166, 82, 164, 92},
	{112, 174, 73, 67, 76, 101, 43, 51, 137, 144, 12},
	{49, 18, 58, 160, 136, 162, 168, 115, 38, 59, 124},
	{109, 116, 145, 52, 1, 23, 89, 72, 149, 173, 44},
	{14, 83, 79, 170, 93, 151, 172, 111, 8, 78, 131},
}

// Select looks up the corpus measure for slot and roll.
func (t Table) Select(slot, roll int) (int, error) {
	if slot < 0 || slot >= len(t) {
		return 0, fmt.Errorf("%w: slot %d not in [0,%d)", ErrIndexOutOfRange, slot, len(t))
	}
	if roll < MinRoll || roll > MaxRoll {
		return 0, fmt.Errorf("%w: roll %d not in [%d,%d]", ErrIndexOutOfRange, roll, MinRoll, MaxRoll)
	}
	return t[slot][roll-MinRoll], nil
}

// Roller produces dice totals in [2,12].
type Roller interface {
	Roll() int
}

// Dice rolls two fair six-sided dice. The zero value uses the global source.
type Dice struct {
	rng *rand.Rand
}

// NewDice returns dice driven by a PCG source seeded with seed.
func NewDice(seed uint64) *Dice {
	return &Dice{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (d *Dice) Roll() int {
	return d.die() + d.die()
}

func (d *Dice) die() int {
	if d == nil || d.rng == nil {
		return rand.IntN(6) + 1
	}
	return d.rng.IntN(6) + 1
}

// FixedRolls replays recorded dice totals in order. Rolling past the end
// returns 0, which Select rejects.
type FixedRolls struct {
	rolls []int
	pos   int
}

func NewFixedRolls(rolls ...int) *FixedRolls {
	return &FixedRolls{rolls: rolls}
}

func (f *FixedRolls) Roll() int {
	if f.pos >= len(f.rolls) {
		return 0
	}
	r := f.rolls[f.pos]
	f.pos++
	return r
}
