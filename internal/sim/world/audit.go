package world

// EditEntry is one applied block change, as recorded by the audit log
// and the save index. Seq is assigned by the consumer that orders the
// stream, not here.
type EditEntry struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	Pos    [3]int `json:"pos"`
	From   string `json:"from"`
	To     string `json:"to"`
	Level  int    `json:"level,omitempty"`
	Source string `json:"source"` // "user", "liquid", "undo", "redo", "load"
	AtMs   int64  `json:"at_ms"`
}
