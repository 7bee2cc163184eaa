package testutil

import (
	"testing"
)

// AgentStream is a captured agent run: planning status, a thinking run, one
// SQL tool call with streamed output, an answer, a result table and the
// terminal events
const AgentStream = `event: response.status
data: {"status":"planning","message":"Planning the next steps"}

event: response.thinking.delta
data: {"content_index":0,"text":"The user wants revenue "}

event: response.thinking.delta
data: {"content_index":0,"text":"by region."}

event: response.thinking
data: {"content_index":0,"text":"The user wants revenue by region."}

event: response.tool_use
data: {"content_index":1,"tool_use_id":"toolu_01","type":"cortex_analyst_text_to_sql","name":"revenue_analyst","input":{"query":"revenue by region"}}

event: response.tool_result.status
data: {"content_index":1,"tool_use_id":"toolu_01","status":"executing_sql","message":"Executing SQL"}

event: response.tool_result.analyst.delta
data: {"content_index":1,"tool_use_id":"toolu_01","delta":{"text":"Revenue grouped by region"}}

event: response.tool_result
data: {"content_index":1,"tool_use_id":"toolu_01","type":"cortex_analyst_text_to_sql","status":"success","content":[{"type":"json","json":{"sql":"SELECT region, SUM(amount) FROM sales GROUP BY 1","text":"Revenue grouped by region"}}]}

event: response.text.delta
data: {"content_index":2,"text":"EMEA leads "}

event: response.text.delta
data: {"content_index":2,"text":"with 42%."}

event: response.text.annotation
data: {"content_index":2,"annotation":{"type":"cortex_analyst_citation","tool_use_id":"toolu_01"}}

event: response.table
data: {"content_index":3,"tool_use_id":"toolu_01","title":"Revenue by region","result_set":{"resultSetMetaData":{"rowType":[{"name":"REGION"},{"name":"REVENUE"}]},"data":[["EMEA","42"],["AMER","38"]]}}

event: response
data: {"role":"assistant","content":[]}

event: done
data: [DONE]

`

// ErrorStream is a run that fails after a partial answer
const ErrorStream = `event: response.text.delta
data: {"text":"Partial"}

event: error
data: {"code":"399504","message":"Agent run failed"}

`

// WriteSSECapture writes stream to name under a fresh temp dir and returns
// its path
func WriteSSECapture(t *testing.T, name, stream string) string {
	t.Helper()
	return WriteFile(t, CreateTempDir(t), name, []byte(stream))
}
