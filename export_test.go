package settings

import (
	"encoding/json"
	"testing"
)

func TestExportDocument(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	doc := Export(md)

	if doc.Name != "mail" || doc.Class != md.ClassName() {
		t.Fatalf("unexpected document identity: %+v", doc)
	}
	if len(doc.Parameters) != 7 {
		t.Fatalf("expected 7 parameters, got %d", len(doc.Parameters))
	}

	var host, debug *ParameterDescriptor
	for i := range doc.Parameters {
		switch doc.Parameters[i].Name {
		case "host":
			host = &doc.Parameters[i]
		case "debug":
			debug = &doc.Parameters[i]
		}
	}
	if host == nil || host.Label != "Mail host" || host.Default != "localhost" {
		t.Fatalf("unexpected host descriptor: %+v", host)
	}
	if debug == nil || debug.EnvVar != "MAIL_DEBUG" || debug.EnvMode != "overwrite" {
		t.Fatalf("unexpected debug descriptor: %+v", debug)
	}
}

func TestExportDocumentListsEmbeds(t *testing.T) {
	md := mustMetadata(t, AppSettings{})
	doc := Export(md)

	if len(doc.Embeds) != 2 {
		t.Fatalf("expected two embeds, got %v", doc.Embeds)
	}
	found := false
	for _, embed := range doc.Embeds {
		if embed.Property == "Database" && embed.Target != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Database embed descriptor, got %v", doc.Embeds)
	}
}

func TestExportJSONSchemaEnrichesProperties(t *testing.T) {
	md := mustMetadata(t, MailSettings{})
	raw, err := ExportJSONSchema(md)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["title"] != "mail" {
		t.Fatalf("expected logical name as title, got %v", doc["title"])
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected top-level properties, got %T", doc["properties"])
	}
	host, ok := props["Host"].(map[string]any)
	if !ok {
		t.Fatalf("expected Host property, got %v", props)
	}
	if host["title"] != "Mail host" || host["default"] != "localhost" {
		t.Fatalf("expected enriched host property, got %v", host)
	}
	region, ok := props["Region"].(map[string]any)
	if !ok {
		t.Fatalf("expected Region property")
	}
	enum, ok := region["enum"].([]any)
	if !ok || len(enum) != 2 {
		t.Fatalf("expected choices as enum, got %v", region["enum"])
	}
}

func TestExportJSONSchemaPrunesEmbeds(t *testing.T) {
	md := mustMetadata(t, AppSettings{})
	raw, err := ExportJSONSchema(md)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	props, _ := doc["properties"].(map[string]any)
	if _, present := props["Database"]; present {
		t.Fatalf("embedded settings must not leak into the class schema")
	}
}
