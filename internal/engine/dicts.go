package engine

import "strings"

// timestampColumns are dropped from INSERTs of tables on the exclusion list.
var timestampColumns = map[string]bool{
	"createdtime":      true,
	"creationtime":     true,
	"lastmodifiedtime": true,
	"lastupdatetime":   true,
	"modifytime":       true,
	"ts":               true,
	"updatetime":       true,
}

func IsTimestampColumn(name string) bool {
	return timestampColumns[strings.ToLower(name)]
}

// maxInList is the most expressions Oracle accepts in one IN list.
const maxInList = 1000
