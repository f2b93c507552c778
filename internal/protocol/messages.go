package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ActorName       string     `json:"actor_name"`
	MaxQueue        int        `json:"max_queue,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	// ResumeActorID reattaches a connection to an existing actor.
	ResumeActorID string `json:"resume_actor_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id,omitempty"`
	ActorID         string         `json:"actor_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Stations        []StationRef   `json:"stations"`
	Inventory       []ItemStack    `json:"inventory"`
}

type WorldParams struct {
	WorldID                string `json:"world_id"`
	TickRateHz             int    `json:"tick_rate_hz"`
	BatchMultiplier        int    `json:"batch_multiplier"`
	CraftingInHandDisabled bool   `json:"crafting_in_hand_disabled,omitempty"`
}

type CatalogDigests struct {
	HandRecipesDigest string `json:"hand_recipes_digest"`
	WorkstationDigest string `json:"workstation_digest"`
	TuningDigest      string `json:"tuning_digest,omitempty"`
}

type StationRef struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	ProcessSlots int    `json:"process_slots"`
}

type ItemStack struct {
	Slot       int    `json:"slot"`
	Item       string `json:"item"`
	Count      int    `json:"count"`
	Tool       string `json:"tool,omitempty"`
	Durability int    `json:"durability,omitempty"`
	Block      bool   `json:"block,omitempty"`
}

// CRAFT (client -> server): craft in hand.
type CraftMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	RecipeID        string `json:"recipe_id"`
	// Params pins ingredient slots, one entry per recipe ingredient; "*" or
	// "" leaves the choice to the server.
	Params []string `json:"params,omitempty"`
	Count  int      `json:"count,omitempty"`
	// Preset is SINGLE, BATCH or ALL and overrides Count.
	Preset string `json:"preset,omitempty"`
}

// STATION (client -> server): workstation operations.
type StationMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Op              string `json:"op"`
	StationID       string `json:"station_id"`
	Slot            int    `json:"slot,omitempty"`
	RecipeID        string `json:"recipe_id,omitempty"`
	Count           int    `json:"count,omitempty"`
	Preset          string `json:"preset,omitempty"`

	// PUT/TAKE.
	Item      string `json:"item,omitempty"`
	ItemCount int    `json:"item_count,omitempty"`
	// TAKE reads from "output" (default) or "inputs".
	From string `json:"from,omitempty"`
}

// PREVIEW (client -> server): list recipes the actor (or a station's
// staged inputs, when StationID is set) can craft right now.
type PreviewMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	StationID       string `json:"station_id,omitempty"`
}

// RESULT (server -> client): answer to one CRAFT, STATION or PREVIEW.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Tick            uint64 `json:"tick"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Output    *OutputRef   `json:"output,omitempty"`
	ProcessID string       `json:"process_id,omitempty"`
	State     string       `json:"state,omitempty"`
	Moved     int          `json:"moved,omitempty"`
	Recipes   []RecipeView `json:"recipes,omitempty"`
}

type OutputRef struct {
	RecipeID   string `json:"recipe_id"`
	Prefab     string `json:"prefab"`
	Block      bool   `json:"block,omitempty"`
	Tool       string `json:"tool,omitempty"`
	Count      int    `json:"count"`
	Multiplier int    `json:"multiplier"`
}

type RecipeView struct {
	RecipeID      string           `json:"recipe_id"`
	Ingredients   []IngredientView `json:"ingredients"`
	Result        string           `json:"result"`
	Block         bool             `json:"block,omitempty"`
	ResultCount   int              `json:"result_count"`
	MaxMultiplier int              `json:"max_multiplier"`
}

type IngredientView struct {
	Kind   string `json:"kind"`
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// EVENT (server -> client): a workstation process changed state.
type EventMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	StationID       string     `json:"station_id"`
	Slot            int        `json:"slot"`
	ProcessID       string     `json:"process_id"`
	RecipeID        string     `json:"recipe_id"`
	From            string     `json:"from"`
	To              string     `json:"to"`
	Reason          string     `json:"reason,omitempty"`
	Output          *OutputRef `json:"output,omitempty"`
}
