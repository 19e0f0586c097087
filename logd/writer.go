// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultSocketPath is the datagram socket logd reads records from.
	DefaultSocketPath = "/dev/socket/logdw"

	// headerSize covers log id (1), tid (2), seconds (4) and nanoseconds (4).
	headerSize = 11
)

// Writer delivers a single record into a log buffer.
type Writer interface {
	Write(id LogID, prio Priority, tag string, msg []byte) error
	Close() error
}

// Open returns a TextWriter appending to filePath when it is set, and a
// SocketWriter connected to socketPath otherwise.
func Open(socketPath, filePath string) (Writer, error) {
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
		}
		return NewTextWriter(f), nil
	}
	w, err := DialSocket(socketPath)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// AppendPacket appends the logd wire representation of a record to dst.
// msg is sent NUL-terminated; a terminator already present is not doubled.
func AppendPacket(dst []byte, id LogID, tid int, ts time.Time, prio Priority, tag string, msg []byte) []byte {
	var hdr [headerSize]byte
	hdr[0] = byte(id)
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(tid))
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(ts.Unix()))
	binary.LittleEndian.PutUint32(hdr[7:11], uint32(ts.Nanosecond()))

	dst = append(dst, hdr[:]...)
	dst = append(dst, byte(prio))
	dst = append(dst, tag...)
	dst = append(dst, 0)
	dst = append(dst, msg...)
	if len(msg) == 0 || msg[len(msg)-1] != 0 {
		dst = append(dst, 0)
	}
	return dst
}

// SocketWriter sends records to logd as datagrams.
type SocketWriter struct {
	mu   sync.Mutex
	conn *net.UnixConn
	buf  []byte
}

func DialSocket(path string) (*SocketWriter, error) {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return &SocketWriter{conn: conn}, nil
}

func (w *SocketWriter) Write(id LogID, prio Priority, tag string, msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = AppendPacket(w.buf[:0], id, unix.Gettid(), time.Now(), prio, tag, msg)
	_, err := w.conn.Write(w.buf)
	return err
}

func (w *SocketWriter) Close() error {
	return w.conn.Close()
}

// TextWriter renders records as threadtime lines, for hosts without logd.
type TextWriter struct {
	mu  sync.Mutex
	w   io.Writer
	pid int
	now func() time.Time
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, pid: os.Getpid(), now: time.Now}
}

func (w *TextWriter) Write(id LogID, prio Priority, tag string, msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := fmt.Fprintf(w.w, "%s %5d %5d %c %-8s: [%s] %s\n",
		w.now().Format("01-02 15:04:05.000"), w.pid, unix.Gettid(), prio.Letter(), tag, id, bytes.TrimRight(msg, "\x00"))
	return err
}

func (w *TextWriter) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
