// Package localserver serves RESP sessions on a Unix domain socket.
//
// Local clients reach the same store as TCP clients without opening a
// network port. Access is controlled by file system permissions: the
// socket is created with mode 0600.
package localserver
