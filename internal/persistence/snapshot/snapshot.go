package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate        int  `json:"tick_rate_hz"`
	WorkPerTick     int  `json:"work_per_tick"`
	BatchMultiplier int  `json:"batch_multiplier"`
	HandDisabled    bool `json:"hand_disabled,omitempty"`

	Actors   []ActorV1   `json:"actors"`
	Stations []StationV1 `json:"stations"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextActor uint64 `json:"next_actor"`
}

type StackV1 struct {
	Slot       int    `json:"slot"`
	Item       string `json:"item"`
	Count      int    `json:"count"`
	Tool       string `json:"tool,omitempty"`
	Durability int    `json:"durability,omitempty"`
	Block      bool   `json:"block,omitempty"`
}

type ActorV1 struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Inventory []StackV1 `json:"inventory"`
}

type StationV1 struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	InputSlots   int         `json:"input_slots"`
	OutputSlots  int         `json:"output_slots"`
	ProcessSlots int         `json:"process_slots"`
	Inputs       []StackV1   `json:"inputs"`
	Output       []StackV1   `json:"output"`
	Processes    []ProcessV1 `json:"processes,omitempty"`
}

// ProcessV1 is a live (non-terminal) workstation process.
type ProcessV1 struct {
	Slot       int    `json:"slot"`
	ID         string `json:"id"`
	RecipeID   string `json:"recipe_id"`
	Actor      string `json:"actor"`
	Multiplier int    `json:"multiplier"`
	State      string `json:"state"`
	Progress   int    `json:"progress"`
	Required   int    `json:"required"`
}

// LiveProcesses counts processes across all stations.
func (s SnapshotV1) LiveProcesses() int {
	n := 0
	for _, st := range s.Stations {
		n += len(st.Processes)
	}
	return n
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded
// snapshot, all inside one zstd stream.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader returns only the header line, without decoding the body.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	hb, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(hb, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
