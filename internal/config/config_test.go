package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (ts *ConfigTestSuite) TestDefaultIsValid() {
	ts.NoError(Default().Validate())
}

func (ts *ConfigTestSuite) TestValidateRejectsTooFewThreads() {
	cfg := Default()
	cfg.NumThreads = 1
	ts.Error(cfg.Validate())
}

func (ts *ConfigTestSuite) TestValidateRejectsInitialBackendsOutOfRange() {
	cfg := Default()
	cfg.NumThreads = 4
	cfg.InitialBackends = 4
	ts.Error(cfg.Validate())

	cfg.InitialBackends = 0
	ts.Error(cfg.Validate())
}

func (ts *ConfigTestSuite) TestValidateRejectsShardOutOfRange() {
	cfg := Default()
	cfg.NumShards = 4
	cfg.MyShard = 4
	ts.Error(cfg.Validate())
}

func (ts *ConfigTestSuite) TestLoadBindsEnvironment() {
	ts.T().Setenv("HMMWORKER_NUMTHREADS", "8")

	v := viper.New()
	cfg, err := Load(v)
	ts.Require().NoError(err)
	ts.Equal(8, cfg.NumThreads)
}

func (ts *ConfigTestSuite) TestStringIncludesCoreTunables() {
	s := Default().String()
	ts.Contains(s, "numThreads=4")
}
