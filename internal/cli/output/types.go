package output

// ScanOutput is the JSON payload produced by the scan command.
type ScanOutput struct {
	Summary  ScanSummary   `json:"summary"`
	Problems []ScanProblem `json:"problems,omitempty"`
	Mapping  string        `json:"mapping,omitempty"`
}

// ScanSummary aggregates the counters of a single scan run.
type ScanSummary struct {
	FilesSeen      int    `json:"files_seen"`
	ScriptsIndexed int    `json:"scripts_indexed"`
	ScriptsSkipped int    `json:"scripts_skipped"`
	ScriptsDeleted int    `json:"scripts_deleted"`
	Problems       int    `json:"problems"`
	Duration       string `json:"duration"`
	Catalog        string `json:"catalog"`
}

// ScanProblem describes one file the scan could not fully index.
type ScanProblem struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TraceOutput is the JSON payload produced by the trace command.
type TraceOutput struct {
	Records []TraceRecord `json:"records"`
	Output  string        `json:"output,omitempty"`
}

// TraceRecord is the lineage of one target table, layer by layer.
type TraceRecord struct {
	Target    string     `json:"target"`
	Layers    [][]string `json:"layers"`
	Truncated bool       `json:"truncated,omitempty"`
	Cyclic    bool       `json:"cyclic,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// ExpandOutput is the JSON payload produced by the expand command.
type ExpandOutput struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	RowsIn   int    `json:"rows_in"`
	RowsOut  int    `json:"rows_out"`
	Promoted int    `json:"promoted"`
}

// GraphOutput is the JSON payload produced by the graph command.
type GraphOutput struct {
	Tables    int          `json:"tables"`
	Edges     int          `json:"edges"`
	Scripts   int          `json:"scripts"`
	Roots     []string     `json:"roots"`
	Leaves    []string     `json:"leaves"`
	Cyclic    bool         `json:"cyclic"`
	CyclePath []string     `json:"cycle_path,omitempty"`
	Levels    []GraphLevel `json:"levels,omitempty"`
}

// GraphLevel is one stratum of the table graph, lowest (raw sources) first.
type GraphLevel struct {
	Level  int      `json:"level"`
	Tables []string `json:"tables"`
}
