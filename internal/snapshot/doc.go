// Package snapshot reads and writes registry snapshots.
//
// A snapshot is a YAML (or JSON) document holding every module a bundled
// application defined, keyed by registry key:
//
//	modules:
//	  de369/d86c0:
//	    $func: "function(){return r.apply(this,arguments)}"
//	    prototype:
//	      $bases: [Backbone.View]
//	      render: { $func: "function(){...}" }
//	  a1b2c3:
//	    $bases: [Backbone.Collection]
//	    model: { $ref: de369/d86c0 }
//
// Mappings decode to objects unless they carry a reserved key:
//
//   - $func: the mapping is a function; its value is the source. The
//     member "prototype" becomes the function's prototype object and every
//     other member a static. $name sets the function name.
//   - $bases: base type names the object is an instance of.
//   - $proto: the object's prototype.
//   - $ref: the mapping stands for another registry entry, or with $path
//     for a member reachable from it. References are resolved after the
//     whole document is read, so a shared module decodes to one pointer
//     and forward references are fine.
//
// YAML anchors and aliases also share identity. Encode writes $ref for
// every repeated composite value, so a snapshot round-trips with its
// identity graph intact.
package snapshot
