// Package pipeline implements the document analysis state machine.
//
// A document moves CREATED -> SEGMENTED -> ANALYZED. Segmentation splits
// the content into sentence units (the title becomes the -1
// pseudo-sentence), persists them unanalyzed and fans out one embedding
// work item per unit. Each sentence work item embeds its sentence,
// upserts the vector under the tenant's namespace and marks the row
// analyzed; the last one to finish promotes the document to ANALYZED via
// a guarded transition. FAILED is only ever forced by an explicit failure
// signal from the queue's dead-letter path.
//
// Every handler tolerates duplicate delivery: stale work items for
// missing rows are dropped, analyzed sentences are not re-embedded, and
// the completion check is safe to run any number of times.
package pipeline
