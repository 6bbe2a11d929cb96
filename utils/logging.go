package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	logger "github.com/sirupsen/logrus"
)

// InitLogger configures the global logrus logger from Config.Logging.
func InitLogger() {
	logCfg := &Config.Logging

	if logCfg.OutputStderr {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if logCfg.OutputLevel != "" {
		level, err := logger.ParseLevel(logCfg.OutputLevel)
		if err != nil {
			logger.Warnf("invalid log level %q, using info", logCfg.OutputLevel)
		} else {
			logger.SetLevel(level)
		}
	}

	if logCfg.FilePath != "" {
		f, err := os.OpenFile(logCfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Errorf("error opening log file %v: %v", logCfg.FilePath, err)
		} else {
			logger.SetOutput(io.MultiWriter(logger.StandardLogger().Out, f))
		}
	}
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
