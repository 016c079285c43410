package grammar

type Terminal struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Anonymous     bool   `json:"anonymous"`
	Pattern       string `json:"pattern"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type NonTerminal struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Nullable bool   `json:"nullable"`
	First    []int  `json:"first"`
	Follow   []int  `json:"follow"`
}

type ReportProduction struct {
	Number        int    `json:"number"`
	LHS           int    `json:"lhs"`
	RHS           []int  `json:"rhs"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type Item struct {
	Production int `json:"production"`
	Dot        int `json:"dot"`
}

type Transition struct {
	Symbol int `json:"symbol"`
	State  int `json:"state"`
}

type Reduce struct {
	LookAhead  []int `json:"look_ahead"`
	Production int   `json:"production"`
}

// Conflict is a shift/reduce or reduce/reduce conflict and how the compiler resolved it.
type Conflict struct {
	Kind        string `json:"kind"`
	Symbol      int    `json:"symbol"`
	State       int    `json:"state"`
	Productions []int  `json:"productions"`
	Adopted     string `json:"adopted"`
	ResolvedBy  string `json:"resolved_by"`
	Message     string `json:"message"`
}

type State struct {
	Number    int           `json:"number"`
	Kernel    []*Item       `json:"kernel"`
	Shift     []*Transition `json:"shift"`
	Reduce    []*Reduce     `json:"reduce"`
	GoTo      []*Transition `json:"goto"`
	Nonassoc  []int         `json:"nonassoc"`
	Conflicts []*Conflict   `json:"conflicts"`
}

type Report struct {
	Class        string              `json:"class"`
	Terminals    []*Terminal         `json:"terminals"`
	NonTerminals []*NonTerminal      `json:"non_terminals"`
	Productions  []*ReportProduction `json:"productions"`
	States       []*State            `json:"states"`
}
