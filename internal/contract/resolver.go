package contract

import "strings"

// RefName returns the schema name a reference points at: the segment after the
// last "/" or, for dotted references, after the last ".".
func RefName(ref string) string {
	name := ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		name = ref[i+1:]
	} else if i := strings.LastIndex(ref, "."); i >= 0 {
		name = ref[i+1:]
	}
	name = strings.ReplaceAll(name, "~1", "/")
	return strings.ReplaceAll(name, "~0", "~")
}

// Lookup returns the schema a reference names. A missing name yields an empty
// schema and false.
func (r Registry) Lookup(ref string) (Schema, bool) {
	schema, ok := r[RefName(ref)]
	if !ok || schema == nil {
		return Schema{}, false
	}
	return schema, true
}

// Resolve dereferences a top-level $ref. Nested references are left alone;
// callers resolve again wherever they descend.
func Resolve(schema Schema, reg Registry) (Schema, []Gap) {
	ref, ok := schema.Ref()
	if !ok {
		return schema, nil
	}
	resolved, found := reg.Lookup(ref)
	if !found {
		return resolved, []Gap{{Kind: GapUnresolvedRef, Name: RefName(ref), Detail: "reference " + ref + " not found in components.schemas"}}
	}
	return resolved, nil
}
