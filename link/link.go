/*Package link provides the transport boundary between this firmware image
and the outside world: the serial (or, in simulation, TCP-loopback) channel
that carries the line-oriented ASCII configuration protocol described by
asciicfg.

Usages of this package boil down to:
	1.  construct a RemoteDevice with NewRemoteDevice, pointed at a serial
		port (IsSerial=true, with a *serial.Config) or a TCP address used by
		cmd/dccsignal-sim to simulate the serial link over loopback.
	2.  Open() the device, SendRecv() lines terminated per Terminators, and
		Close() or CloseEventually() when done.
	3.  asciicfg.Codec sits on top of this and turns raw lines into
		Command/Response values; this package only knows about bytes.

A minimal example, issuing a raw SET_CV line and reading the OK/ERR reply:

	rd := link.NewRemoteDevice("/dev/ttyUSB0", true, nil, serCfg)
	err := rd.Open()
	if err != nil {
		return err
	}
	defer rd.Close()
	resp, err := rd.SendRecv([]byte("SET_CV 1 3"))
*/
package link

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNoSerialConf is returned by Open when IsSerial is true and no
	// *serial.Config was given
	ErrNoSerialConf = errors.New("IsSerial=true but no serial config was given")

	// ErrNotConnected is generated when .Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")

	// errCloseTooSoon is generated when one attempts to close a connection too soon after communicating
	errCloseTooSoon = errors.New("attempt to close a connection sooner than closeDelay after the last communication")
)

const (
	// DefaultTerminator is the default transmission termination byte
	DefaultTerminator = byte('\r')

	closeDelay = 5 * time.Second
)

// Sender has a Send method that passes along a byte slice with the transmission termination appended
type Sender interface {
	Send([]byte) error
}

// Recver has a Recv method that gets a byte slice and strips the termination byte
type Recver interface {
	Recv() ([]byte, error)
}

// SendRecver can send and recieve, and provides a method that sends then recieves
type SendRecver interface {
	Sender
	Recver

	SendRecv([]byte) ([]byte, error)
}

// Opener can open ("establish a connection" but in io language)
type Opener interface {
	Open() error
}

// A Communicator can Open, Send, Recv and Close.
//
// It makes no promises about concurrent behavior or stability
type Communicator interface {
	io.Closer
	Opener
	SendRecver
}

// Terminators holds Rx and Tx terminators where are each a single byte
type Terminators struct {
	Rx, Tx byte
}

/*RemoteDevice has an address and implements Communicator

All connects, disconnects, and write->read communication is done
with locks.  This makes the RemoteDevice concurrent-safe through blocking over
TCP.  This behavior is untested over serial.

note that if IsSerial is true, the serCfg must not be nil or calls to Open will
always return ErrNoSerialConf.

*/
type RemoteDevice struct {
	sync.Mutex

	// Addr is the address to connect to
	Addr string

	// IsSerial indicates if the connection type is serial or not
	IsSerial bool

	// Timeout holds the duration of time to wait for replies
	Timeout time.Duration

	// Conn holds the TCP or Serial connection
	Conn     io.ReadWriteCloser
	lastComm time.Time
	txTerm   byte
	rxTerm   byte

	serCfg *serial.Config
}

/*NewRemoteDevice creates a new RemoteDevice instance

Addr is the remote address to connect to

IsSerial is whether the connection is serial (true) or TCP (false)

t holds the Rx and Tx terminators; nil selects DefaultTerminator for both
*/
func NewRemoteDevice(addr string, serial bool, t *Terminators, s *serial.Config) RemoteDevice {
	var rx, tx byte
	if t == nil {
		rx = DefaultTerminator
		tx = DefaultTerminator
	} else {
		rx = t.Rx
		tx = t.Tx
	}
	return RemoteDevice{
		Addr:     addr,
		IsSerial: serial,
		Timeout:  3 * time.Second,
		txTerm:   tx,
		rxTerm:   rx,
		serCfg:   s}
}

/*Open the connection, setting the Conn variable

This function transparently opens either a TCP or a serial connection.

If conn is not nil, this function is a no-op and does not error.
*/
func (rd *RemoteDevice) Open() error {
	if rd.Conn != nil {
		return nil
	}
	if rd.IsSerial && rd.serCfg == nil {
		return ErrNoSerialConf
	}
	rd.Lock()
	defer rd.Unlock()
	// exponential backoff: only errors mentioning "refused" (nothing
	// listening yet) are retried; any other error ends the attempts and is
	// reported as a connection timeout
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			errS := strings.ToLower(err.Error())
			if strings.Contains(errS, "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}

	// backoff will cease on a timeout so we don't wait
	// forever, so we need to check for err != nil && !wasTimeout
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	// err != nil
	if wasTimeout {
		return fmt.Errorf("connection timeout to %s", rd.Addr)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var err error
	var conn io.ReadWriteCloser
	if rd.IsSerial {
		conf := rd.serCfg
		if conf == nil {
			return ErrNoSerialConf
		}
		conn, err = serial.OpenPort(conf)
	} else {
		conn, err = TCPSetup(rd.Addr, rd.Timeout)
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Close the connection, nil-ing the Conn variable
//
// A lock is acquired and released during this operation
func (rd *RemoteDevice) Close() error {
	rd.Lock()
	defer rd.Unlock()
	if rd.Conn != nil {
		err := rd.Conn.Close()
		if err == nil {
			rd.Conn = nil
			return nil
		}
		errS := strings.ToLower(err.Error())
		if strings.Contains(errS, "closed") { // errors containing the "closed" trigger phrase are benign
			err = nil
		}
		return err
	}
	return nil
}

func (rd *RemoteDevice) closeMaybe() error {
	now := time.Now()
	if now.Sub(rd.lastComm) < closeDelay {
		return errCloseTooSoon
	}
	return rd.Close()
}

/*CloseEventually will trigger an unbounded number of attempts to close
the connection, spaced closeDelay apart.  An attempt made within closeDelay
of the last communication, or one whose Close returns an error, is retried;
the attempts stop after the first successful close.

This function spawns a goroutine and is used to allow connection
persistence between communications.  Use Close if you wish to close immediately.
*/
func (rd *RemoteDevice) CloseEventually() {
	go rd.closeEventually()
}

func (rd *RemoteDevice) closeEventually() error {
	back := backoff.NewConstantBackOff(closeDelay)
	time.Sleep(closeDelay)
	return backoff.Retry(rd.closeMaybe, back)
}

// Send writes data to the remote
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	if conn, ok := rd.Conn.(net.Conn); ok {
		// update the deadline; deadlines are wall times and connection
		// may have persisted from a previous communication
		deadline := time.Now().Add(rd.Timeout)
		conn.SetDeadline(deadline)
	}

	b = append(b, rd.txTerm)
	_, err := rd.Conn.Write(b)
	rd.lastComm = time.Now()
	return err
}

// Recv recieves data from the remote and strips the Rx terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	term := rd.rxTerm
	buf, err := bufio.NewReader(rd.Conn).ReadBytes(term)
	rd.lastComm = time.Now()
	if err != nil {
		return []byte{}, err
	}
	if bytes.HasSuffix(buf, []byte{term}) {
		idx := bytes.IndexByte(buf, term)
		return buf[:idx], nil
	}
	return buf, ErrTerminatorNotFound

}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if rd.Conn == nil {
		return []byte{}, ErrNotConnected
	}
	rd.Lock()
	defer rd.Unlock()
	err := rd.Send(b)
	if err != nil {
		return []byte{}, err
	}
	return rd.Recv()
}

// OpenSendRecvClose calls Open(), defer CloseEventually(), SendRecv()
// this reduces a usage from:
//
//  err := rd.Open()
//  // error handling
//  defer rd.CloseEventually()
//  return rd.SendRecv([]byte)
//
// to:
// rd.OpenSendRecvClose([]byte)
//
// This relies on Open being a no-op for an existing connection,
// and the mutex inside RemoteDevice making this concurrent safe
func (rd *RemoteDevice) OpenSendRecvClose(b []byte) ([]byte, error) {
	err := rd.Open()
	if err != nil {
		return []byte{}, err
	}
	defer rd.CloseEventually()
	return rd.SendRecv(b)
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetDeadline(deadline)
	return conn, nil
}
