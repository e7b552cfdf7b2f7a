package main

import "context"

func (cli *commandLine) resetPassword(uname, pwd string) error {
	_, err := cli.usrSvc.SetPassword(context.Background(), uname, pwd)
	return err
}
