package render

// Theme holds colors for CFG and call graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by edge type.
	EdgeTaken       string // conditional, branch taken
	EdgeFallthrough string // conditional, branch not taken
	EdgeDirect      string // unconditional
	EdgeBack        string // into a loop header from its body
	EdgeIndirect    string // call through a register or memory operand
	EdgeUnresolved  string // direct call to an address outside any function

	// Node accents.
	EntryBorder     string
	TermFill        string // blocks without successors
	LoopFill        string // loop headers
	IrreducibleFill string // headers of irreducible loops
	ExitFill        string // synthetic exit block
	StubFill        string // sub_<hex> functions without a name
	ExternalText    string // call targets outside the module
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken:       "#0B3D91", // NASA blue
	EdgeFallthrough: "#FC3D21", // NASA red
	EdgeDirect:      "#424242", // dark gray
	EdgeBack:        "#00695C", // teal
	EdgeIndirect:    "#6A1B9A", // purple
	EdgeUnresolved:  "#9E9E9E", // gray

	EntryBorder:     "#0B3D91",
	TermFill:        "#ECEFF1", // blue-gray 50
	LoopFill:        "#E0F2F1", // teal 50
	IrreducibleFill: "#FFF3E0", // orange 50
	ExitFill:        "#BDBDBD",
	StubFill:        "#EEEEEE",
	ExternalText:    "#757575",
}
