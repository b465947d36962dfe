// pkg/object/sftp.go

package object

import (
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type sftpFile struct {
	*sftp.File
	size int64
}

func (f *sftpFile) Size() int64 { return f.size }

type sftpStore struct {
	host   string
	root   string
	conn   *ssh.Client
	client *sftp.Client
}

func (s *sftpStore) String() string {
	return "sftp://" + s.host + s.root + "/"
}

func (s *sftpStore) path(key string) string { return path.Join(s.root, key) }

func (s *sftpStore) Create() error {
	return s.client.MkdirAll(s.root)
}

func (s *sftpStore) Head(key string) (Object, error) {
	fi, err := s.client.Stat(s.path(key))
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, errors.Errorf("%s is a directory", s.path(key))
	}
	return &obj{key, fi.Size(), fi.ModTime()}, nil
}

func (s *sftpStore) Get(key string, off, limit int64) (io.ReadCloser, error) {
	f, err := s.client.Open(s.path(key))
	if err != nil {
		return nil, err
	}
	if off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if limit >= 0 {
		return &readCloser{io.LimitReader(f, limit), f}, nil
	}
	return f, nil
}

func (s *sftpStore) Open(key string) (File, error) {
	f, err := s.client.Open(s.path(key))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &sftpFile{f, fi.Size()}, nil
}

func (s *sftpStore) Put(key string) (io.WriteCloser, error) {
	p := s.path(key)
	f, err := s.client.Create(p)
	if err != nil {
		if err = s.client.MkdirAll(path.Dir(p)); err == nil {
			f, err = s.client.Create(p)
		}
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *sftpStore) Delete(key string) error {
	err := s.client.Remove(s.path(key))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return err
}

func (s *sftpStore) List() ([]Object, error) {
	infos, err := s.client.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var objs []Object
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		objs = append(objs, &obj{fi.Name(), fi.Size(), fi.ModTime()})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key() < objs[j].Key() })
	return objs, nil
}

// Close ends the session; stores opened on sftp should be closed after use.
func (s *sftpStore) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

type sftpTarget struct {
	host     string
	user     string
	password string
	root     string
}

// parseSftp splits "user[:password]@host[:port]/path"; the password falls back to SFTP_PASSWORD.
func parseSftp(endpoint string) (*sftpTarget, error) {
	u, err := url.Parse("sftp://" + endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid sftp endpoint %s", endpoint)
	}
	if u.Host == "" {
		return nil, errors.Errorf("no host in sftp endpoint %s", endpoint)
	}
	t := &sftpTarget{host: u.Host, root: path.Clean("/" + u.Path)}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		t.host = net.JoinHostPort(u.Host, "22")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	if t.user == "" {
		t.user = os.Getenv("USER")
	}
	if t.password == "" {
		t.password = os.Getenv("SFTP_PASSWORD")
	}
	return t, nil
}

func (t *sftpTarget) auth() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if keyFile := os.Getenv("SFTP_PRIVATE_KEY"); keyFile != "" {
		if pem, err := os.ReadFile(keyFile); err != nil {
			logger.Warnf("read private key %s: %s", keyFile, err)
		} else if signer, err := ssh.ParsePrivateKey(pem); err != nil {
			logger.Warnf("parse private key %s: %s", keyFile, err)
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}
	if t.password != "" {
		methods = append(methods, ssh.Password(t.password))
	}
	return methods
}

func newSftpStorage(endpoint string) (ObjectStorage, error) {
	t, err := parseSftp(endpoint)
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            t.user,
		Auth:            t.auth(),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	conn, err := ssh.Dial("tcp", t.host, config)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", t.host)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "start sftp session on %s", t.host)
	}
	return &sftpStore{host: t.host, root: t.root, conn: conn, client: client}, nil
}

func init() {
	Register("sftp", newSftpStorage)
}
