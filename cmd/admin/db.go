package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	recipeID := fs.String("recipe", "", "recipe_id filter (crafts)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,actors,stations,live_processes FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick          int64  `json:"tick"`
				Path          string `json:"path"`
				Actors        int    `json:"actors"`
				Stations      int    `json:"stations"`
				LiveProcesses int    `json:"live_processes"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Actors, &r.Stations, &r.LiveProcesses); err != nil {
				fail("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fail("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "crafts", "anomalies":
		where := []string{"1=1"}
		var qargs []any
		if q == "anomalies" {
			where = append(where, "anomaly=1")
		}
		if r := strings.TrimSpace(*recipeID); r != "" {
			where = append(where, "recipe_id=?")
			qargs = append(qargs, r)
		}
		qargs = append(qargs, *limit)
		rows, err := db.Query(`SELECT raw_json FROM crafts WHERE `+strings.Join(where, " AND ")+` ORDER BY tick DESC, seq DESC LIMIT ?`, qargs...)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				fail("scan", err)
			}
			fmt.Println(raw)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "recipes":
		// Per-recipe totals across the index.
		rows, err := db.Query(`SELECT recipe_id, action, COUNT(*), COALESCE(SUM(count),0) FROM crafts WHERE recipe_id != '' GROUP BY recipe_id, action ORDER BY recipe_id, action`)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RecipeID string `json:"recipe_id"`
				Action   string `json:"action"`
				Events   int    `json:"events"`
				Produced int    `json:"produced"`
			}
			if err := rows.Scan(&r.RecipeID, &r.Action, &r.Events, &r.Produced); err != nil {
				fail("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-recipe ID] snapshots|catalogs|crafts|anomalies|recipes")
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
