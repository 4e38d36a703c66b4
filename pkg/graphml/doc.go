// Package graphml loads labeled graphs from GraphML documents as written by
// the yEd editor.
//
// # Required Elements
//
// A document must have a <graphml> root containing at least one <graph>;
// only the first graph is read. Nodes and edges nested in group nodes
// (yEd's <node><graph>...</graph></node>) are flattened in document order.
//
// The document must declare the equivalence key exactly once:
//
//	<key id="d4" for="node" attr.name="Equivalence" attr.type="int">
//	  <default>-1</default>
//	</key>
//
// The first <key> with attr.name="Equivalence", for="node" (or "all") and an
// id is used; its <default> becomes [Document.DefaultEquivalence]. This
// lookup happens once, during load.
//
// # Node Attributes
//
//   - id: required and unique
//   - equivalence: the text of the node's <data key="d4">, if present
//   - fill: the color attribute of the first nested Fill element
//     (yEd's <y:Fill color="#FFCC00"/>), or else the text of a <data> whose
//     key is declared with attr.name "color" or "fill"
//
// A node without any fill color is a load error.
//
// # Errors
//
// Structural problems are reported as LOAD_ERROR (see pkg/errors). Edges that
// reference undeclared nodes are NOT rejected here; reference checking is the
// reducer's job.
package graphml
