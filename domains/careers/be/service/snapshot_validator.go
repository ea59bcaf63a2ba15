package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed snapshot_schema.json
var snapshotSchemaJSON []byte

// SnapshotValidator validates raw backup payloads against the snapshot JSON
// Schema before they reach the import path. Compilation happens once.
type SnapshotValidator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	compErr  error
}

// NewSnapshotValidator returns a validator with a lazily compiled schema.
func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{}
}

// Validate ensures the payload is a well-formed snapshot document.
func (v *SnapshotValidator) Validate(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("snapshot payload is required")
	}

	compiled, err := v.schema()
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("snapshot validation: %w", err)
	}

	return nil
}

func (v *SnapshotValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		const key = "memory://schemas/snapshot.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(key, bytes.NewReader(snapshotSchemaJSON)); err != nil {
			v.compErr = fmt.Errorf("register snapshot schema: %w", err)
			return
		}
		v.compiled, v.compErr = compiler.Compile(key)
	})
	return v.compiled, v.compErr
}
