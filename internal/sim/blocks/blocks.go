// Package blocks defines the closed set of block kinds and the static
// behavior table the engine consults for solidity, light emission and
// liquid identity. The table is resolved at compile time; external
// collaborators (assets, UI) key their own data by the same kind names.
package blocks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Kind identifies a block type. Zero value is Air.
type Kind uint16

const (
	Air Kind = iota
	Grass
	Dirt
	Stone
	Cobblestone
	Sand
	OakPlanks
	OakLog
	Leaves
	Glass
	Obsidian
	Glowstone
	Torch
	Water
	Lava
	OakDoor
	OakStairs
	OakSlab
	StoneStairs
	StoneSlab

	kindCount
)

// LiquidKind distinguishes the two liquid families.
type LiquidKind uint8

const (
	LiquidNone LiquidKind = iota
	LiquidWater
	LiquidLava
)

// Def is the static behavior record for one kind.
type Def struct {
	Name     string
	Solid    bool // occupies the cell for flow purposes
	Opaque   bool // blocks light propagation
	Emission int  // light intensity in [0,15]
	Liquid   LiquidKind
	Stateful bool // carries a Properties record (doors, stairs, slabs)
}

var defs = [kindCount]Def{
	Air:         {Name: "AIR"},
	Grass:       {Name: "GRASS", Solid: true, Opaque: true},
	Dirt:        {Name: "DIRT", Solid: true, Opaque: true},
	Stone:       {Name: "STONE", Solid: true, Opaque: true},
	Cobblestone: {Name: "COBBLESTONE", Solid: true, Opaque: true},
	Sand:        {Name: "SAND", Solid: true, Opaque: true},
	OakPlanks:   {Name: "OAK_PLANKS", Solid: true, Opaque: true},
	OakLog:      {Name: "OAK_LOG", Solid: true, Opaque: true},
	Leaves:      {Name: "LEAVES", Solid: true},
	Glass:       {Name: "GLASS", Solid: true},
	Obsidian:    {Name: "OBSIDIAN", Solid: true, Opaque: true},
	Glowstone:   {Name: "GLOWSTONE", Solid: true, Opaque: true, Emission: 15},
	Torch:       {Name: "TORCH", Emission: 14},
	Water:       {Name: "WATER", Liquid: LiquidWater},
	Lava:        {Name: "LAVA", Liquid: LiquidLava, Emission: 15},
	OakDoor:     {Name: "OAK_DOOR", Solid: true, Stateful: true},
	OakStairs:   {Name: "OAK_STAIRS", Solid: true, Stateful: true},
	OakSlab:     {Name: "OAK_SLAB", Solid: true, Stateful: true},
	StoneStairs: {Name: "STONE_STAIRS", Solid: true, Opaque: true, Stateful: true},
	StoneSlab:   {Name: "STONE_SLAB", Solid: true, Opaque: true, Stateful: true},
}

// Get returns the behavior record for k.
func Get(k Kind) Def {
	if k >= kindCount {
		return Def{}
	}
	return defs[k]
}

// Valid reports whether k is a known kind.
func Valid(k Kind) bool { return k < kindCount }

// ByName resolves a kind by its catalog name.
func ByName(name string) (Kind, bool) {
	k, ok := index[name]
	return k, ok
}

// Count returns the number of known kinds, air included.
func Count() int { return int(kindCount) }

var index = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[defs[k].Name] = k
	}
	return m
}()

// Palette lists every kind name, AIR first, the rest sorted.
// Clients cache it against PaletteDigest.
func Palette() []string {
	out := make([]string, 0, kindCount)
	for k := Kind(1); k < kindCount; k++ {
		out = append(out, defs[k].Name)
	}
	sort.Strings(out)
	return append([]string{defs[Air].Name}, out...)
}

// PaletteDigest is the sha256 of the JSON-encoded palette.
func PaletteDigest() string {
	b, _ := json.Marshal(Palette())
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Facing is the horizontal orientation of stairs and doors.
type Facing uint8

const (
	FacingNorth Facing = iota // -Y
	FacingEast                // +X
	FacingSouth               // +Y
	FacingWest                // -X
)

// Rotate returns the next facing clockwise.
func (f Facing) Rotate() Facing { return (f + 1) % 4 }

func (f Facing) String() string {
	switch f {
	case FacingNorth:
		return "NORTH"
	case FacingEast:
		return "EAST"
	case FacingWest:
		return "WEST"
	}
	return "SOUTH"
}

func FacingByName(s string) Facing {
	switch s {
	case "NORTH":
		return FacingNorth
	case "EAST":
		return FacingEast
	case "WEST":
		return FacingWest
	}
	return FacingSouth
}

// SlabHalf is the vertical half a slab occupies.
type SlabHalf uint8

const (
	SlabBottom SlabHalf = iota
	SlabTop
)

func (h SlabHalf) String() string {
	if h == SlabTop {
		return "TOP"
	}
	return "BOTTOM"
}

func SlabHalfByName(s string) SlabHalf {
	if s == "TOP" {
		return SlabTop
	}
	return SlabBottom
}

// Properties is the mutable per-position state of stateful kinds.
// Non-stateful kinds must not carry one.
type Properties struct {
	Facing Facing   `json:"facing"`
	Open   bool     `json:"open"`
	Half   SlabHalf `json:"half"`
}
