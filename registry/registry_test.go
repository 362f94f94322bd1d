package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/praxis-ai/praxis/model"
	"github.com/stretchr/testify/require"
)

func testDefinition(name string) *model.WorkflowDefinition {
	fsm := model.NewFSM([]string{"work", "DONE"}, "work")
	fsm.AddTransition("work", model.EVENT_SUCCESS, "DONE")
	return &model.WorkflowDefinition{
		Name: name,
		Fsm:  fsm,
		Actions: map[string]model.ActionRef{
			"work": {Kind: model.ACTION_KIND_SCRIPT, Expression: "$.output = 1;"},
		},
	}
}

func TestRegistry(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, reg *Registry){
		"test register and find":        testRegisterAndFind,
		"test duplicate name":           testDuplicateName,
		"test overwrite":                testOverwrite,
		"test remove":                   testRemove,
		"test find similar":             testFindSimilar,
		"test usage stats":              testUsageStats,
		"test concurrent stats updates": testConcurrentStats,
		"test export import":            testExportImport,
		"test validation on register":   testValidationOnRegister,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, New())
		})
	}
}

func testRegisterAndFind(t *testing.T, reg *Registry) {
	def := testDefinition("wf-1")
	meta := model.WorkflowMetadata{Description: "unit test workflow", Tags: []string{"test"}}
	require.NoError(t, reg.Register(def, meta, false))

	found, err := reg.FindByName("wf-1")
	require.NoError(t, err)
	require.Equal(t, def, found)
	require.Equal(t, int64(1), reg.Lookups())

	_, err = reg.FindByName("missing")
	require.ErrorIs(t, err, model.ErrWorkflowNotFound)
}

func testDuplicateName(t *testing.T, reg *Registry) {
	def := testDefinition("wf-dup")
	require.NoError(t, reg.Register(def, model.WorkflowMetadata{}, false))
	err := reg.Register(def, model.WorkflowMetadata{}, false)
	require.ErrorIs(t, err, model.ErrDuplicateName)
}

func testOverwrite(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Register(testDefinition("wf-ow"), model.WorkflowMetadata{Tags: []string{"old"}}, false))
	require.NoError(t, reg.Register(testDefinition("wf-ow"), model.WorkflowMetadata{Tags: []string{"new"}}, true))
	meta, err := reg.GetMetadata("wf-ow")
	require.NoError(t, err)
	require.Equal(t, []string{"new"}, meta.Tags)
}

func testRemove(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Register(testDefinition("wf-rm"), model.WorkflowMetadata{Tags: []string{"gone"}}, false))
	require.NoError(t, reg.Remove("wf-rm"))
	_, err := reg.FindByName("wf-rm")
	require.ErrorIs(t, err, model.ErrWorkflowNotFound)
	require.ErrorIs(t, reg.Remove("wf-rm"), model.ErrWorkflowNotFound)
}

func testFindSimilar(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Register(testDefinition("incident-triage"), model.WorkflowMetadata{
		Description: "triage production incident reports by severity",
		Tags:        []string{"incident", "triage", "severity"},
	}, false))
	require.NoError(t, reg.Register(testDefinition("report-builder"), model.WorkflowMetadata{
		Description: "build weekly sales report",
		Tags:        []string{"report", "sales"},
	}, false))

	matches := reg.FindSimilar("triage the new incident by severity", 5)
	require.NotEmpty(t, matches)
	require.Equal(t, "incident-triage", matches[0].Workflow.Name)
	for i := 1; i < len(matches); i++ {
		require.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}

	matches = reg.FindSimilar("triage the new incident by severity", 1)
	require.Len(t, matches, 1)
}

func testUsageStats(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Register(testDefinition("wf-stats"), model.WorkflowMetadata{}, false))
	reg.UpdateUsageStats("wf-stats", true, 100*time.Millisecond)
	reg.UpdateUsageStats("wf-stats", false, 300*time.Millisecond)

	meta, err := reg.GetMetadata("wf-stats")
	require.NoError(t, err)
	require.Equal(t, int64(2), meta.UsageCount)
	require.InDelta(t, 0.5, meta.SuccessRate, 0.0001)
	require.InDelta(t, 200, meta.AvgExecutionMs, 0.0001)
}

func testConcurrentStats(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Register(testDefinition("wf-conc"), model.WorkflowMetadata{}, false))
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.UpdateUsageStats("wf-conc", true, 10*time.Millisecond)
		}()
	}
	wg.Wait()
	meta, err := reg.GetMetadata("wf-conc")
	require.NoError(t, err)
	require.Equal(t, int64(100), meta.UsageCount)
	require.InDelta(t, 1.0, meta.SuccessRate, 0.0001)
}

func testExportImport(t *testing.T, reg *Registry) {
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("wf-exp-%d", i)
		require.NoError(t, reg.Register(testDefinition(name), model.WorkflowMetadata{Description: name}, false))
	}
	records := reg.Export()
	require.Len(t, records, 3)

	fresh := New()
	require.NoError(t, fresh.Import(records))
	for i := 0; i < 3; i++ {
		_, err := fresh.FindByName(fmt.Sprintf("wf-exp-%d", i))
		require.NoError(t, err)
	}
}

func testValidationOnRegister(t *testing.T, reg *Registry) {
	def := testDefinition("wf-bad")
	delete(def.Actions, "work")
	err := reg.Register(def, model.WorkflowMetadata{}, false)
	require.ErrorIs(t, err, model.ErrUnboundState)

	def = testDefinition("wf-bad-action")
	def.Actions["work"] = model.ActionRef{Kind: model.ACTION_KIND_AGENT_CALL, Capability: "fly"}
	require.Error(t, reg.Register(def, model.WorkflowMetadata{}, false))
}
