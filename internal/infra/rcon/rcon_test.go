package rcon

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

// writeFramedPacket is a test helper mirroring Client.send, used by a fake
// server to reply to the client under test.
func writeFramedPacket(conn net.Conn, id, packetType int32, payload string) {
	body := make([]byte, 0, 8+len(payload)+2)
	idBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(idBuf, uint32(id))
	body = append(body, idBuf...)
	typeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(typeBuf, uint32(packetType))
	body = append(body, typeBuf...)
	body = append(body, []byte(payload)...)
	body = append(body, 0x00, 0x00)

	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(body)))
	conn.Write(sizeBuf)
	conn.Write(body)
}

func startFakeServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	return ln.Addr().String()
}

func TestDialAuthenticatesSuccessfully(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		// Auth request arrives; read its size+body minimally then reply id=1.
		sizeBuf := make([]byte, 4)
		readFull(conn, sizeBuf)
		size := binary.LittleEndian.Uint32(sizeBuf)
		body := make([]byte, size)
		readFull(conn, body)
		writeFramedPacket(conn, 1, typeResponse, "")

		// Execute a command and echo it back.
		readFull(conn, sizeBuf)
		size = binary.LittleEndian.Uint32(sizeBuf)
		body = make([]byte, size)
		readFull(conn, body)
		writeFramedPacket(conn, 2, typeResponse, "pong")
	})

	c, err := Dial(addr, "secret", time.Second, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	resp, err := c.Execute("ping")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp != "pong" {
		t.Fatalf("Execute = %q, want %q", resp, "pong")
	}
}

func TestDialAuthFailureReturnsError(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		sizeBuf := make([]byte, 4)
		readFull(conn, sizeBuf)
		size := binary.LittleEndian.Uint32(sizeBuf)
		body := make([]byte, size)
		readFull(conn, body)
		writeFramedPacket(conn, -1, typeResponse, "")
	})

	_, err := Dial(addr, "wrong", time.Second, time.Second)
	if err == nil {
		t.Fatal("expected authentication failure for id=-1 response")
	}
}

func TestReceiveRejectsOversizedPacketBeforeParsing(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		sizeBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBuf, maxPacketSize+1)
		conn.Write(sizeBuf)
		// Deliberately do not write the (oversized) body — the client must
		// reject based on the declared size alone, without trying to read it.
	})

	_, err := Dial(addr, "secret", 2*time.Second, 2*time.Second)
	if err == nil {
		t.Fatal("expected oversized packet to be rejected")
	}
}
