// Package pipeline runs the per-page steps of a crawl in sequence.
//
// A page visit moves through render, extract and merge. Each stage is a Step
// that receives the current model.Visit and fills it in. Before a step runs,
// the pipeline moves the visit into the state the step declares, so a
// failed visit always tells which stage it failed in.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. The state machine of a visit lives in one place
// 2. It provides consistent logging across steps
// 3. It supports cancellation via context between steps
package pipeline
