package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"craftworks.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validate(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// roundTrip marshals a Go message and decodes it back into a generic value,
// so the schemas check what the server actually emits.
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "actor_name":"crafter",
	  "max_queue":8,
	  "auth":{"resume_actor_id":"A1"}
	}`), &hello)
	validate(t, compile(t, "hello.schema.json"), hello)

	var craft any
	_ = json.Unmarshal([]byte(`{
	  "type":"CRAFT",
	  "protocol_version":"1.0",
	  "req_id":"R1",
	  "recipe_id":"WoodAndStone:Plank",
	  "params":["0","*"],
	  "preset":"BATCH"
	}`), &craft)
	validate(t, compile(t, "craft.schema.json"), craft)

	station := compile(t, "station.schema.json")
	var start any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATION",
	  "protocol_version":"1.0",
	  "op":"START",
	  "station_id":"S1",
	  "slot":0,
	  "recipe_id":"Building|Planks|WoodAndStone:PlankBlock",
	  "count":2
	}`), &start)
	validate(t, station, start)

	var startNoRecipe any
	_ = json.Unmarshal([]byte(`{"type":"STATION","protocol_version":"1.0","op":"START","station_id":"S1"}`), &startNoRecipe)
	if err := station.Validate(startNoRecipe); err == nil {
		t.Fatalf("expected START without recipe_id to be rejected")
	}
}

func TestSchemas_ServerMessages(t *testing.T) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ActorID:         "A1",
		WorldParams:     protocol.WorldParams{WorldID: "w1", TickRateHz: 5, BatchMultiplier: 5},
		Catalogs:        protocol.CatalogDigests{HandRecipesDigest: "deadbeef", WorkstationDigest: "deadbeef"},
		Stations:        []protocol.StationRef{{ID: "S1", Type: "WoodAndStone:BasicWoodcrafting", ProcessSlots: 1}},
		Inventory:       []protocol.ItemStack{{Slot: 0, Item: "WoodAndStone:CrudeAxe", Count: 1, Tool: "axe", Durability: 32}},
	}
	validate(t, compile(t, "welcome.schema.json"), roundTrip(t, welcome))

	result := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           "R1",
		Tick:            12,
		OK:              true,
		Output:          &protocol.OutputRef{RecipeID: "WoodAndStone:Plank", Prefab: "WoodAndStone:Plank", Count: 8, Multiplier: 2},
		Recipes: []protocol.RecipeView{{
			RecipeID:      "WoodAndStone:Plank",
			Ingredients:   []protocol.IngredientView{{Kind: "CONSUME", Type: "WoodAndStone:log", Amount: 1}},
			Result:        "WoodAndStone:Plank",
			ResultCount:   4,
			MaxMultiplier: 2,
		}},
	}
	resultSchema := compile(t, "result.schema.json")
	validate(t, resultSchema, roundTrip(t, result))
	validate(t, resultSchema, roundTrip(t, protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version, Tick: 3, Code: protocol.ErrNoMatch, Message: "no match",
	}))

	event := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            40,
		StationID:       "S1",
		ProcessID:       "P1",
		RecipeID:        "Building|Planks|WoodAndStone:PlankBlock",
		From:            "IN_PROGRESS",
		To:              "ABORTED",
		Reason:          "inputs no longer satisfy recipe",
	}
	validate(t, compile(t, "event.schema.json"), roundTrip(t, event))
}
