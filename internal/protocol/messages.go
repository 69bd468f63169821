package protocol

// Command ops.
const (
	OpPlace        = "PLACE"
	OpRemove       = "REMOVE"
	OpToggleDoor   = "TOGGLE_DOOR"
	OpRotateStair  = "ROTATE_STAIR"
	OpFlipSlab     = "FLIP_SLAB"
	OpPaste        = "PASTE_STRUCTURE"
	OpUndo         = "UNDO"
	OpRedo         = "REDO"
	OpPick         = "PICK"
	OpQuery        = "QUERY"
	OpSave         = "SAVE"
	OpLoad         = "LOAD"
	OpClear        = "CLEAR"
	OpClearLiquids = "CLEAR_LIQUIDS"
	OpSetZoom      = "SET_ZOOM"
	OpRotateView   = "ROTATE_VIEW"
	OpSetAmbient   = "SET_AMBIENT"
	OpToggleLiquid = "TOGGLE_LIQUID"
	OpToggleLight  = "TOGGLE_LIGHT"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    DigestRef   `json:"block_palette"`
}

type WorldParams struct {
	Volume      [3]int `json:"volume"`
	FrameRateHz int    `json:"frame_rate_hz"`
	WaterFlowMs int    `json:"water_flow_ms"`
	LavaFlowMs  int    `json:"lava_flow_ms"`
	TileWidth   int    `json:"tile_width"`
	TileHeight  int    `json:"tile_height"`
	BlockHeight int    `json:"block_height"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CMD (client -> server). Which fields apply depends on Op; the
// dispatcher rejects commands missing their op's required fields.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`

	Pos       *[3]int  `json:"pos,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Screen    *[2]int  `json:"screen,omitempty"`
	Name      string   `json:"name,omitempty"`
	Structure string   `json:"structure,omitempty"`
	Zoom      *float64 `json:"zoom,omitempty"`
	Ambient   *int     `json:"ambient,omitempty"`
	Dir       int      `json:"dir,omitempty"`
	Enabled   *bool    `json:"enabled,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Block      *BlockInfo  `json:"block,omitempty"`
	Picked     *[3]int     `json:"picked,omitempty"`
	LoadReport *LoadReport `json:"load_report,omitempty"`
	Changed    int         `json:"changed,omitempty"`
}

type BlockInfo struct {
	Pos         [3]int          `json:"pos"`
	Kind        string          `json:"kind"`
	Properties  *PropertiesInfo `json:"properties,omitempty"`
	Light       int             `json:"light"`
	LiquidLevel int             `json:"liquid_level,omitempty"`
}

type PropertiesInfo struct {
	Facing string `json:"facing,omitempty"`
	Open   bool   `json:"open,omitempty"`
	Half   string `json:"half,omitempty"`
}

type LoadReport struct {
	Placed  int      `json:"placed"`
	Skipped int      `json:"skipped"`
	Unknown []string `json:"unknown_kinds,omitempty"`
}

// FRAME (server -> client): the full depth-ordered draw list for one
// frame, back to front.
type FrameMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	View            ViewState   `json:"view"`
	Draw            []DrawEntry `json:"draw"`
}

type ViewState struct {
	Rotation int     `json:"rotation"`
	Zoom     float64 `json:"zoom"`
	Ambient  int     `json:"ambient"`
}

type DrawEntry struct {
	Pos         [3]int          `json:"pos"`
	Kind        string          `json:"kind"`
	Properties  *PropertiesInfo `json:"properties,omitempty"`
	Screen      [2]int          `json:"screen"`
	Light       int             `json:"light"`
	LiquidLevel int             `json:"liquid_level,omitempty"`
	AO          [3]float64      `json:"ao"`
}
