// Package rcon implements the binary Source RCON protocol client used by
// adapters to talk to running game servers over TCP.
package rcon

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	typeAuth     int32 = 3
	typeCommand  int32 = 2
	typeResponse int32 = 0

	maxPacketSize = 4096
)

// Client is a connected RCON session.
type Client struct {
	conn    net.Conn
	nextID  int32
	readTO  time.Duration
	writeTO time.Duration
}

// Dial connects to addr and authenticates with password. readTimeout and
// writeTimeout apply to every subsequent I/O operation.
func Dial(addr, password string, readTimeout, writeTimeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, writeTimeout)
	if err != nil {
		return nil, fmt.Errorf("rcon dial %s: %w", addr, err)
	}

	c := &Client{conn: conn, nextID: 1, readTO: readTimeout, writeTO: writeTimeout}
	if err := c.authenticate(password); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) authenticate(password string) error {
	id := c.nextID
	c.nextID++
	if err := c.send(id, typeAuth, password); err != nil {
		return fmt.Errorf("rcon send auth: %w", err)
	}
	respID, _, err := c.receive()
	if err != nil {
		return fmt.Errorf("rcon read auth response: %w", err)
	}
	if respID == -1 {
		return fmt.Errorf("rcon authentication failed")
	}
	return nil
}

// Execute sends a command and returns the server's response payload.
func (c *Client) Execute(command string) (string, error) {
	id := c.nextID
	c.nextID++
	if err := c.send(id, typeCommand, command); err != nil {
		return "", fmt.Errorf("rcon send command: %w", err)
	}
	_, payload, err := c.receive()
	if err != nil {
		return "", fmt.Errorf("rcon read command response: %w", err)
	}
	return payload, nil
}

// Close drops the TCP stream.
func (c *Client) Close() error {
	return c.conn.Close()
}

// send writes one framed packet: {size u32 LE, id i32 LE, type i32 LE,
// payload utf8, 0x00, 0x00}.
func (c *Client) send(id, packetType int32, payload string) error {
	body := make([]byte, 0, 8+len(payload)+2)
	idBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(idBuf, uint32(id))
	body = append(body, idBuf...)

	typeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(typeBuf, uint32(packetType))
	body = append(body, typeBuf...)

	body = append(body, []byte(payload)...)
	body = append(body, 0x00, 0x00)

	size := uint32(len(body))
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, size)

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTO))
	if _, err := c.conn.Write(sizeBuf); err != nil {
		return err
	}
	_, err := c.conn.Write(body)
	return err
}

// receive reads one framed packet, rejecting a declared size greater than
// maxPacketSize before attempting to read the body.
func (c *Client) receive() (id int32, payload string, err error) {
	c.conn.SetReadDeadline(time.Now().Add(c.readTO))

	sizeBuf := make([]byte, 4)
	if _, err = readFull(c.conn, sizeBuf); err != nil {
		return 0, "", err
	}
	size := binary.LittleEndian.Uint32(sizeBuf)
	if size > maxPacketSize {
		return 0, "", fmt.Errorf("rcon packet size %d exceeds maximum %d", size, maxPacketSize)
	}

	body := make([]byte, size)
	if _, err = readFull(c.conn, body); err != nil {
		return 0, "", err
	}
	if len(body) < 10 {
		return 0, "", fmt.Errorf("rcon packet too short: %d bytes", len(body))
	}

	id = int32(binary.LittleEndian.Uint32(body[0:4]))
	// body[4:8] is the type field, unused by the caller.
	payload = string(body[8 : len(body)-2])
	return id, payload, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
