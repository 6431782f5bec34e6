package module

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainShape    = "plugmods/shape/v1"
	DomainSnapshot = "plugmods/snapshot/v1"
	DomainCatalog  = "plugmods/catalogue/v1"
)

// shapeDepth bounds how far Fingerprint descends into members. Module
// graphs are heavily cyclic (views reference models reference views), so
// only the near neighbourhood of a value contributes to its shape.
const shapeDepth = 2

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes raw bytes under one of the domain prefixes above. The
// store uses it to identify the snapshot and catalogue a run was made
// against.
func Digest(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// Fingerprint returns a stable digest of the shape of v: kinds, member
// names, function sources, base types and scalar values, down to a fixed
// depth. Two snapshots of the same build give the same fingerprint for a
// module; a rebuilt module whose shape changed gives a different one.
func Fingerprint(v Value) string {
	canonical, err := MarshalCanonical(Shape(v))
	if err != nil {
		// Shape only produces canonical-safe data.
		panic(fmt.Sprintf("module: fingerprint: %v", err))
	}
	return hashWithDomain(DomainShape, canonical)
}

// Shape returns the structural summary that Fingerprint hashes, as plain
// data suitable for MarshalCanonical.
func Shape(v Value) map[string]any {
	return shapeOf(v, shapeDepth, map[Value]bool{})
}

func shapeOf(v Value, depth int, seen map[Value]bool) map[string]any {
	out := map[string]any{"kind": Kind(v)}
	switch val := v.(type) {
	case String:
		out["value"] = string(val)
	case Number:
		// Floats are not canonical-safe; the shortest round-trip text is.
		out["value"] = strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		out["value"] = bool(val)
	case *Array:
		if val == nil {
			return out
		}
		out["length"] = int64(len(val.Items))
		if depth > 0 && !seen[v] {
			seen[v] = true
			items := make([]any, len(val.Items))
			for i, item := range val.Items {
				items[i] = shapeOf(item, depth-1, seen)
			}
			out["items"] = items
			delete(seen, v)
		}
	case *Object:
		if val == nil {
			return out
		}
		if bases := collectBases(val); len(bases) > 0 {
			out["bases"] = bases
		}
		if depth > 0 && !seen[v] {
			seen[v] = true
			out["members"] = membersOf(val, depth-1, seen)
			if val.Proto != nil {
				out["proto"] = membersOf(val.Proto, depth-1, seen)
			}
			delete(seen, v)
		}
	case *Func:
		if val == nil {
			return out
		}
		out["source"] = val.Source
		if depth > 0 && !seen[v] {
			seen[v] = true
			if val.Statics.Len() > 0 {
				out["statics"] = membersOf(val.Statics, depth-1, seen)
			}
			if val.Proto != nil {
				out["proto"] = membersOf(val.Proto, depth-1, seen)
			}
			delete(seen, v)
		}
	}
	return out
}

func membersOf(obj *Object, depth int, seen map[Value]bool) map[string]any {
	members := make(map[string]any, obj.Len())
	for _, name := range obj.keys {
		members[name] = shapeOf(obj.fields[name], depth, seen)
	}
	return members
}

func collectBases(obj *Object) []string {
	var bases []string
	for cur, depth := obj, 0; cur != nil && depth < 64; cur, depth = cur.Proto, depth+1 {
		bases = append(bases, cur.Bases...)
	}
	return bases
}
