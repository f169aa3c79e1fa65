// Package main exports the machine-readable schemas llmbridge publishes
// for host integrators. Hosts validate signature definitions against the
// published schema before spending a round trip on create_program; the
// committed copies under schemas/ are kept in lockstep with the embedded
// sources by the contract tests and by this tool's -check mode.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"

	"github.com/c360/llmbridge/signature"
)

func main() {
	outDir := flag.String("out", "./schemas", "Output directory for schemas")
	check := flag.Bool("check", false, "Verify committed schemas match the code instead of writing")
	flag.Parse()

	log.Printf("Schema Exporter")
	log.Printf("  Output dir: %s", *outDir)

	if *check {
		if err := checkArtifacts(*outDir); err != nil {
			log.Fatalf("Schema drift detected: %v", err)
		}
		log.Printf("✅ Committed schemas match the code")
		return
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for _, a := range artifacts() {
		outFile := filepath.Join(*outDir, a.File)
		normalized, err := normalize([]byte(a.Source))
		if err != nil {
			log.Fatalf("Failed to normalize %s: %v", a.Name, err)
		}
		if err := os.WriteFile(outFile, normalized, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", a.Name, err)
		}
		log.Printf("  ✓ Generated: %s", outFile)
	}

	log.Printf("✅ Schema generation complete!")
}

// Artifact is one published schema: the embedded source of truth and the
// versioned file it is committed as.
type Artifact struct {
	Name   string
	File   string
	Source string
}

// artifacts lists every schema the worker publishes.
func artifacts() []Artifact {
	return []Artifact{
		{
			Name:   "signature definition",
			File:   "signature.definition.v1.json",
			Source: signature.MetaSchema(),
		},
	}
}

// normalize re-renders JSON with sorted keys and two-space indentation so
// regenerated files diff cleanly.
func normalize(raw []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// checkArtifacts compares each committed schema structurally against its
// embedded source.
func checkArtifacts(dir string) error {
	for _, a := range artifacts() {
		path := filepath.Join(dir, a.File)
		committed, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var want, got any
		if err := json.Unmarshal([]byte(a.Source), &want); err != nil {
			return fmt.Errorf("embedded %s schema is not valid JSON: %w", a.Name, err)
		}
		if err := json.Unmarshal(bytes.TrimSpace(committed), &got); err != nil {
			return fmt.Errorf("committed %s is not valid JSON: %w", path, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			return fmt.Errorf("%s differs from code (-code +committed):\n%s", path, diff)
		}
		log.Printf("  ✓ Verified: %s", path)
	}
	return nil
}
