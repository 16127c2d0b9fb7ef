package snooauth

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Credentials are the account username and password
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) String() string {
	return fmt.Sprintf("username [%s]  password [%s]", c.Username, hashOf(c.Password))
}

// CredentialsFunc supplies credentials when a fresh login is needed
type CredentialsFunc func() (Credentials, error)

// CredentialsFromFile returns a CredentialsFunc reading a JSON
// {"username": ..., "password": ...} file
func CredentialsFromFile(fileName string) CredentialsFunc {
	return func() (Credentials, error) {
		return LoadCredentials(fileName)
	}
}

func LoadCredentials(fileName string) (Credentials, error) {
	c := Credentials{}

	file, err := os.Open(fileName)
	if err != nil {
		return c, errors.Wrapf(err, "opening credential file %s for read", fileName)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&c); err != nil {
		return c, errors.Wrapf(err, "loading credentials from %s", fileName)
	}

	if c.Username == "" || c.Password == "" {
		return c, fmt.Errorf("credential file %s needs a username and password", fileName)
	}

	return c, nil
}
