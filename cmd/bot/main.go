package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"craftworks.ai/internal/protocol"
)

// bot is a smoke-test client: it previews what it can craft and crafts the
// first matching recipe once per interval, logging every result and event.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "actor name")
		resume   = flag.String("resume", "", "actor id to resume (optional)")
		interval = flag.Duration("interval", 2*time.Second, "preview/craft interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ActorName:       *name,
		MaxQueue:        16,
	}
	if *resume != "" {
		hello.Auth = &protocol.HelloAuth{ResumeActorID: *resume}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	seq := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			seq++
			_ = conn.WriteJSON(protocol.PreviewMsg{
				Type:            protocol.TypePreview,
				ProtocolVersion: protocol.Version,
				ReqID:           fmt.Sprintf("preview_%d", seq),
			})
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if next := handle(logger, msg); next != nil {
				_ = conn.WriteJSON(next)
			}
		}
	}
}

// handle logs one server message and returns the follow-up request, if any.
func handle(logger *log.Logger, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil
		}
		logger.Printf("WELCOME actor_id=%s world=%s stations=%d items=%d", w.ActorID, w.WorldParams.WorldID, len(w.Stations), len(w.Inventory))

	case protocol.TypeResult:
		var r protocol.ResultMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return nil
		}
		if !r.OK {
			logger.Printf("RESULT req=%s %s: %s", r.ReqID, r.Code, r.Message)
			return nil
		}
		if r.Output != nil {
			logger.Printf("RESULT req=%s crafted %s x%d (m=%d)", r.ReqID, r.Output.Prefab, r.Output.Count, r.Output.Multiplier)
			return nil
		}
		if len(r.Recipes) > 0 {
			rec := r.Recipes[0]
			return protocol.CraftMsg{
				Type:            protocol.TypeCraft,
				ProtocolVersion: protocol.Version,
				ReqID:           "craft_" + r.ReqID,
				RecipeID:        rec.RecipeID,
				Preset:          "SINGLE",
			}
		}

	case protocol.TypeEvent:
		var e protocol.EventMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil
		}
		logger.Printf("EVENT station=%s process=%s %s->%s %s", e.StationID, e.ProcessID, e.From, e.To, e.Reason)
	}
	return nil
}
