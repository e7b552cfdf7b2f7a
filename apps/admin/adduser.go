package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	for _, role := range roles {
		if user.RolePriority(role) == 0 {
			return errors.Errorf("invalid role %q", role)
		}
	}
	usr, err := cli.usrSvc.Upsert(context.Background(), name, uname, email, pwd, roles)
	if err != nil {
		return err
	}
	logger.Printf("user %s (%s) saved", usr.Username, usr.ID)
	return nil
}
