package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type Catalogs struct {
	Hand        HandCatalog
	Workstation WorkstationCatalog
}

type HandCatalog struct {
	// Defs keeps file order, which is registration order.
	Defs   []RecipeDef
	ByID   map[string]RecipeDef
	Digest string
}

// RecipeDef is one recipe definition. Ingredient lists hold "<count>*<type>"
// strings; tools carry the durability cost in place of the count.
type RecipeDef struct {
	RecipeID      string   `json:"recipe_id"`
	ItemResult    string   `json:"item_result,omitempty"`
	BlockResult   string   `json:"block_result,omitempty"`
	ResultCount   int      `json:"result_count,omitempty"`
	// Tool and Durability make an item result a tool; each crafted unit
	// is a separate stack.
	Tool          string   `json:"tool,omitempty"`
	Durability    int      `json:"durability,omitempty"`
	MaxMultiplier int      `json:"max_multiplier,omitempty"`
	Components    []string `json:"components,omitempty"`
	Tools         []string `json:"tools,omitempty"`
	Activators    []string `json:"activators,omitempty"`
}

// Result returns the produced prefab. A block result wins over an item
// result.
func (d RecipeDef) Result() (prefab string, block bool) {
	if d.BlockResult != "" {
		return d.BlockResult, true
	}
	return d.ItemResult, false
}

type WorkstationCatalog struct {
	ShapeFamilies []ShapeFamilyDef   `json:"shape_families"`
	Recipes       []StationRecipeDef `json:"recipes"`
	Digest        string             `json:"-"`
}

// ShapeFamilyDef expands into a full block recipe plus one recipe per block
// shape.
type ShapeFamilyDef struct {
	ProcessType   string `json:"process_type"`
	RecipePrefix  string `json:"recipe_prefix"`
	Ingredient    string `json:"ingredient"`
	Tool          string `json:"tool"`
	BlockResult   string `json:"block_result"`
	ResultCount   int    `json:"result_count"`
	FullBlockOnly bool   `json:"full_block_only,omitempty"`
}

type StationRecipeDef struct {
	ProcessType string `json:"process_type"`
	RecipeDef
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadHand(filepath.Join(configDir, "recipes.json"), &c.Hand); err != nil {
		return nil, err
	}
	if err := loadWorkstation(filepath.Join(configDir, "workstation.json"), &c.Workstation); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	return jsonschema.CompileString(name, string(raw))
}

// validate checks raw against the named embedded schema.
func validate(file, schema string, raw []byte) error {
	s, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("%s: schema: %w", file, err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}

func loadHand(path string, out *HandCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decodeHand(raw, out)
}

func decodeHand(raw []byte, out *HandCatalog) error {
	if err := validate("recipes.json", "recipes.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.Defs = defs
	out.ByID = make(map[string]RecipeDef, len(defs))
	for _, d := range defs {
		if _, dup := out.ByID[d.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %q", d.RecipeID)
		}
		out.ByID[d.RecipeID] = d
	}
	return nil
}

func loadWorkstation(path string, out *WorkstationCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// No workstations configured.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	return decodeWorkstation(raw, out)
}

func decodeWorkstation(raw []byte, out *WorkstationCatalog) error {
	if err := validate("workstation.json", "workstation.schema.json", raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("workstation.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

// ProcessTypes lists every process type referenced by the workstation
// catalog, in first-seen order.
func (w WorkstationCatalog) ProcessTypes() []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, f := range w.ShapeFamilies {
		add(f.ProcessType)
	}
	for _, r := range w.Recipes {
		add(r.ProcessType)
	}
	return out
}
