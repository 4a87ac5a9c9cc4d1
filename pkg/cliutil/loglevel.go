// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogLevel is a pflag.Value that sets the level of a logrus.Logger.
type LogLevel struct {
	Logger *logrus.Logger
}

var _ pflag.Value = LogLevel{}

func (l LogLevel) String() string {
	if l.Logger == nil {
		return logrus.InfoLevel.String()
	}
	return l.Logger.GetLevel().String()
}

func (l LogLevel) Set(str string) error {
	lvl, err := logrus.ParseLevel(str)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(lvl)
	return nil
}

func (LogLevel) Type() string { return "level" }
