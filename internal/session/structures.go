package session

import "isoforge.dev/internal/sim/blocks"

// Structure is a premade block arrangement pasted relative to an
// origin cell. Entries outside the volume are clipped, not an error.
type Structure struct {
	Name   string
	Blocks []StructureBlock
}

type StructureBlock struct {
	DX, DY, DZ int
	Kind       blocks.Kind
}

var structures = map[string]Structure{
	"house":     houseStructure(),
	"tree":      treeStructure(),
	"lamp_post": lampPostStructure(),
	"fountain":  fountainStructure(),
}

// StructureNames lists the built-in templates.
func StructureNames() []string {
	out := make([]string, 0, len(structures))
	for name := range structures {
		out = append(out, name)
	}
	return out
}

func houseStructure() Structure {
	var bs []StructureBlock
	// 5x5 plank walls, two levels, hollow inside.
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			edge := x == 0 || x == 4 || y == 0 || y == 4
			for z := 0; z < 3; z++ {
				if !edge {
					continue
				}
				if x == 2 && y == 0 && z < 2 {
					continue // doorway
				}
				bs = append(bs, StructureBlock{x, y, z, blocks.OakPlanks})
			}
		}
	}
	bs = append(bs, StructureBlock{2, 0, 0, blocks.OakDoor})
	// flat log roof
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			bs = append(bs, StructureBlock{x, y, 3, blocks.OakLog})
		}
	}
	return Structure{Name: "House", Blocks: bs}
}

func treeStructure() Structure {
	var bs []StructureBlock
	for z := 0; z < 3; z++ {
		bs = append(bs, StructureBlock{0, 0, z, blocks.OakLog})
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			bs = append(bs, StructureBlock{dx, dy, 3, blocks.Leaves})
		}
	}
	bs = append(bs, StructureBlock{0, 0, 4, blocks.Leaves})
	return Structure{Name: "Tree", Blocks: bs}
}

func lampPostStructure() Structure {
	return Structure{
		Name: "Lamp Post",
		Blocks: []StructureBlock{
			{0, 0, 0, blocks.Stone},
			{0, 0, 1, blocks.OakLog},
			{0, 0, 2, blocks.OakLog},
			{0, 0, 3, blocks.Glowstone},
		},
	}
}

func fountainStructure() Structure {
	var bs []StructureBlock
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			if x == 1 && y == 1 {
				continue
			}
			bs = append(bs, StructureBlock{x, y, 0, blocks.Cobblestone})
		}
	}
	bs = append(bs,
		StructureBlock{1, 1, 0, blocks.Stone},
		StructureBlock{1, 1, 1, blocks.Stone},
		StructureBlock{1, 1, 2, blocks.Water},
	)
	return Structure{Name: "Fountain", Blocks: bs}
}
