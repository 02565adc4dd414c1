package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/chamapesa/go-chama-client/users"
)

// On-disk entry names, one per persisted key. These mirror the storage keys the
// web dashboard uses ("token", "refresh_token", "user").
const (
	accessTokenFile  = "token"
	refreshTokenFile = "refresh_token"
	userFile         = "user.json"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the credentials as three entries under a directory, typically
// somewhere below os.UserConfigDir. Writes go through a temp file and rename so
// a crash never leaves a truncated entry behind.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("[NewFileStore] dir is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] MkdirAll")
	}
	return &FileStore{dir: dir}, nil
}

// Save overwrites the access token, refresh token, and profile snapshot. Any
// failure means the save did not happen as a whole: the caller must not assume
// partial success, and the next Load will self-heal whatever was written.
func (fs *FileStore) Save(token *oauth2.Token, user *users.User) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("[FileStore.Save] access token is required")
	}
	if user == nil {
		return errors.New("[FileStore.Save] user is required")
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal user")
	}

	if err := fs.writeEntry(accessTokenFile, []byte(token.AccessToken)); err != nil {
		return err
	}
	if token.RefreshToken != "" {
		if err := fs.writeEntry(refreshTokenFile, []byte(token.RefreshToken)); err != nil {
			return err
		}
	} else if err := fs.removeEntry(refreshTokenFile); err != nil {
		return err
	}
	return fs.writeEntry(userFile, userJSON)
}

// Load returns the persisted credentials, or (nil, nil) when there is no
// session. A profile without a token, a token without a profile, or corrupt
// profile JSON is treated as malformed state: the store clears itself and
// reports no session rather than surfacing the damage.
func (fs *FileStore) Load() (*Credentials, error) {
	accessRaw, err := fs.readEntry(accessTokenFile)
	if err != nil {
		return nil, err
	}
	userJSON, err := fs.readEntry(userFile)
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(string(accessRaw))
	if accessToken == "" && userJSON == nil {
		return nil, nil
	}
	if accessToken == "" || userJSON == nil {
		return nil, fs.selfHeal("partial credentials on disk")
	}

	var user users.User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, fs.selfHeal("corrupt user profile on disk")
	}

	refreshRaw, err := fs.readEntry(refreshTokenFile)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Token: &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: strings.TrimSpace(string(refreshRaw)),
		},
		User: &user,
	}, nil
}

// Clear removes all three entries. Missing entries are not an error, so Clear
// is safe to call repeatedly.
func (fs *FileStore) Clear() error {
	for _, name := range []string{accessTokenFile, refreshTokenFile, userFile} {
		if err := fs.removeEntry(name); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStore) selfHeal(reason string) error {
	log.Warn().Str("dir", fs.dir).Msg(reason + ", clearing stored credentials")
	return fs.Clear()
}

func (fs *FileStore) writeEntry(name string, data []byte) error {
	path := filepath.Join(fs.dir, name)
	tmp, err := os.CreateTemp(fs.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.writeEntry] CreateTemp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.writeEntry] Write")
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.writeEntry] Chmod")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.writeEntry] Close")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.writeEntry] Rename")
	}
	return nil
}

func (fs *FileStore) readEntry(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.readEntry] ReadFile")
	}
	return data, nil
}

func (fs *FileStore) removeEntry(name string) error {
	err := os.Remove(filepath.Join(fs.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.removeEntry] Remove")
	}
	return nil
}
