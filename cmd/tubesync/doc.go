// Command tubesync runs the headless sync client and provides CLI access to
// its status, download queue, and notifications over the control socket.
package main
