// Package chat orchestrates conversations over the streaming generation
// gateway.
//
// Each user input atomically appends a user entry and a paired pending
// assistant entry to the chat's history; the assistant entry's id rides a
// chat-generate work item. The generation worker marks the entry
// generating, builds a prompt from the preceding history, streams the
// completion and stores the accumulated text. Regeneration resets a
// finished entry to pending and re-enqueues it; an entry already
// generating is never disturbed.
package chat
