package sources

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"event-catalog/core/reconcile"
	"event-catalog/core/utils"

	"gopkg.in/yaml.v3"
)

// listKeys are the wrapper keys under which feeds nest their items.
var listKeys = []string{"itemListElement", "@graph", "events", "items", "data"}

// Decode parses a JSON or YAML document of listings. format is a file name or
// extension; anything that is not .yaml or .yml is read as JSON. Listings without
// a sourceName are attributed to sourceName.
func Decode(data []byte, format, sourceName string) ([]reconcile.RawRecord, error) {
	var doc any
	switch strings.ToLower(path.Ext(format)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}

	var out []reconcile.RawRecord
	for _, item := range items(doc) {
		if rec, ok := toRaw(item, sourceName); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// items flattens the supported document shapes into listing objects.
func items(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		var out []map[string]any
		for _, el := range v {
			out = append(out, items(el)...)
		}
		return out
	case map[string]any:
		for _, key := range listKeys {
			if nested, ok := v[key].([]any); ok {
				return items(nested)
			}
		}
		// ItemList entries wrap the event in "item".
		if inner, ok := v["item"].(map[string]any); ok {
			return []map[string]any{inner}
		}
		return []map[string]any{v}
	}
	return nil
}

// toRaw maps one loosely typed listing onto a raw record. Schema.org Event keys
// and the catalog's own field names are both accepted. Cancelled events and
// objects that are not events at all are skipped.
func toRaw(m map[string]any, sourceName string) (reconcile.RawRecord, bool) {
	if strings.Contains(utils.ToString(m["eventStatus"]), "Cancelled") || utils.ToBool(m["cancelled"]) {
		return reconcile.RawRecord{}, false
	}
	if typ := utils.ToString(m["@type"]); typ != "" && !strings.HasSuffix(typ, "Event") {
		return reconcile.RawRecord{}, false
	}

	rec := reconcile.RawRecord{
		Title:        utils.FirstString(m, "title", "name"),
		Description:  utils.FirstString(m, "description"),
		ShortSummary: utils.FirstString(m, "shortSummary", "summary", "disambiguatingDescription"),
		VenueName:    utils.FirstString(m, "venueName", "venue"),
		VenueAddress: utils.FirstString(m, "venueAddress"),
		City:         utils.FirstString(m, "city"),
		Category:     utils.ToStringSlice(firstOf(m, "category", "categories", "keywords", "tags")),
		ImageURL:     utils.FirstString(m, "imageUrl", "image"),
		SourceName:   utils.FirstString(m, "sourceName"),
		SourceURL:    utils.FirstString(m, "sourceUrl", "url", "link"),
	}
	if rec.SourceName == "" {
		rec.SourceName = sourceName
	}

	if rec.VenueName == "" {
		if name, ok := m["location"].(string); ok {
			rec.VenueName = strings.TrimSpace(name)
		} else {
			rec.VenueName = utils.ToString(utils.Lookup(m, "location", "name"))
		}
	}
	switch addr := utils.Lookup(m, "location", "address").(type) {
	case string:
		if rec.VenueAddress == "" {
			rec.VenueAddress = addr
		}
	case map[string]any:
		if rec.VenueAddress == "" {
			rec.VenueAddress = utils.ToString(addr["streetAddress"])
		}
		if rec.City == "" {
			rec.City = utils.ToString(addr["addressLocality"])
		}
	}

	switch d := firstOf(m, "dateTime", "startDate", "start").(type) {
	case time.Time:
		rec.DateTime = &d
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(d)); err == nil {
			rec.DateTime = &t
		} else {
			rec.DateText = d
		}
	}
	if rec.DateTime == nil && rec.DateText == "" {
		rec.DateText = utils.FirstString(m, "dateText", "date", "when")
	}

	return rec, rec.Title != "" || rec.SourceURL != ""
}

func firstOf(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
