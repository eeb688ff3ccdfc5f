// Package persistence saves subscriber state across restarts.
//
// A CursorState records the cache token of every channel a client was
// subscribed to, so a restarted subscriber resumes each channel where it
// left off instead of only seeing messages published after it came back.
package persistence
