/*
Package session implements session management and persistence orchestration.

A Manager serializes the turns of each session (in-process and, optionally,
across replicas through a DistributedLocker), hands the engine a bounded
window of the stored history, and appends what the turn produced back to the
full conversation.
*/
package session
