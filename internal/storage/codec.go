package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBase = "https://schemas.flownote.dev/"

const (
	labelListSchema = `{"type":"array","items":{"type":"string"}}`

	noteListSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "title": {"type": "string"},
      "content": {"type": "string"},
      "folder": {"type": "string"},
      "created_at": {"type": "string"},
      "updated_at": {"type": "string"}
    }
  }
}`

	flowListSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "title": {"type": "string"},
      "category": {"type": "string"},
      "nodes": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "id": {"type": "string"},
            "noteId": {"type": "string"},
            "position": {
              "type": "object",
              "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
            }
          }
        }
      },
      "edges": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "source": {"type": "string"},
            "target": {"type": "string"}
          }
        }
      }
    }
  }
}`

	themeSchema = `{
  "type": "object",
  "required": ["theme"],
  "properties": {"theme": {"enum": ["default", "darker"]}}
}`

	trashIndexSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "version": {"type": "integer"},
    "lastUpdated": {"type": "string"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["note", "flow", "folder", "category"]},
          "title": {"type": "string"}
        }
      }
    }
  }
}`
)

var documentSchemas = map[Document]string{
	DocNotes:      noteListSchema,
	DocFolders:    labelListSchema,
	DocFlows:      flowListSchema,
	DocCategories: labelListSchema,
	DocTheme:      themeSchema,
	DocTrashIndex: trashIndexSchema,
}

var compiledSchemas = sync.OnceValues(func() (map[Document]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	out := make(map[Document]*jsonschema.Schema, len(documentSchemas))
	for doc, src := range documentSchemas {
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("storage: parse %s schema: %w", doc, err)
		}
		url := schemaBase + string(doc)
		if err := c.AddResource(url, parsed); err != nil {
			return nil, fmt.Errorf("storage: add %s schema: %w", doc, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("storage: compile %s schema: %w", doc, err)
		}
		out[doc] = sch
	}
	return out, nil
})

// Validate checks data against the schema of doc.
func Validate(doc Document, data []byte) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage: %s is not JSON: %w", doc, err)
	}
	sch, ok := schemas[doc]
	if !ok {
		return nil
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("storage: %s has the wrong shape: %w", doc, err)
	}
	return nil
}

// Encode serializes v the way every document is stored: two-space indented JSON.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return data, nil
}

// DecodeList parses a list document. Malformed data yields nil and false.
func DecodeList[T any](doc Document, data []byte, logger *slog.Logger) ([]T, bool) {
	if err := Validate(doc, data); err != nil {
		warnMalformed(logger, doc, err)
		return nil, false
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		warnMalformed(logger, doc, err)
		return nil, false
	}
	return out, true
}

// DecodeObject parses an object document. Malformed data yields nil and false.
func DecodeObject[T any](doc Document, data []byte, logger *slog.Logger) (*T, bool) {
	if err := Validate(doc, data); err != nil {
		warnMalformed(logger, doc, err)
		return nil, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		warnMalformed(logger, doc, err)
		return nil, false
	}
	return &out, true
}

// ReadList loads a list document from b. Absent and malformed documents both
// read as an empty list; only backend failures are returned.
func ReadList[T any](ctx context.Context, b Backend, doc Document, logger *slog.Logger) ([]T, error) {
	data, err := b.ReadDocument(ctx, doc)
	if err != nil || data == nil {
		return nil, err
	}
	out, _ := DecodeList[T](doc, data, logger)
	return out, nil
}

// ReadObject loads an object document from b; nil when absent or malformed.
func ReadObject[T any](ctx context.Context, b Backend, doc Document, logger *slog.Logger) (*T, error) {
	data, err := b.ReadDocument(ctx, doc)
	if err != nil || data == nil {
		return nil, err
	}
	out, _ := DecodeObject[T](doc, data, logger)
	return out, nil
}

// WriteValue encodes v and fully replaces doc on b.
func WriteValue(ctx context.Context, b Backend, doc Document, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return b.WriteDocument(ctx, doc, data)
}

func warnMalformed(logger *slog.Logger, doc Document, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("storage: malformed document, using empty default",
		slog.String("document", string(doc)),
		slog.String("error", err.Error()))
}
