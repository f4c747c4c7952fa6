// Package repl runs respkv-cli's interactive mode.
//
// Each input line is split into words (double quotes group words, with
// backslash escapes inside) and handed to an Executor. "exit" and "quit"
// leave the loop; "history" prints previous lines. History persists in
// ~/.respkv_history.
package repl
