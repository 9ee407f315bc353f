/*
Package google adapts Gmail and Google Calendar to the assistant's provider
ports, and implements the OAuth consent flow that yields per-session handles.
*/
package google
