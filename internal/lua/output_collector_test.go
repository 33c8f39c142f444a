package lua

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OutputCollectorTestSuite struct {
	suite.Suite
}

func record(content string) LuaOutputRecord {
	return LuaOutputRecord{Content: content, Timestamp: time.Now(), Source: "stdout"}
}

func (suite *OutputCollectorTestSuite) waitProcessed(c *OutputCollector, n int64) {
	suite.Eventually(func() bool { return c.Metrics().RecordsProcessed >= n }, time.Second, time.Millisecond,
		"collector MUST process %d records", n)
}

func (suite *OutputCollectorTestSuite) TestNewOutputCollector() {
	// GOAL: Verify constructor validation
	//
	// TEST SCENARIO: Build collectors with bad arguments → expect errors; valid ones → not running
	ch := make(chan LuaOutputRecord, 1)

	_, err := NewOutputCollector(nil, 10, nil)
	suite.Error(err, "nil channel MUST be rejected")
	_, err = NewOutputCollector(ch, 0, nil)
	suite.Error(err, "zero buffer MUST be rejected")
	_, err = NewOutputCollector(ch, MaxBufferSize+1, nil)
	suite.Error(err, "oversized buffer MUST be rejected")

	c, err := NewOutputCollector(ch, 100, nil)
	suite.Require().NoError(err)
	suite.GreaterOrEqual(c.buffer.Cap(), uint32(100))
	suite.Equal(CollectorStateNotRunning, c.State())
}

func (suite *OutputCollectorTestSuite) TestStartStop() {
	ch := make(chan LuaOutputRecord, 4)
	c, err := NewOutputCollector(ch, 16, nil)
	suite.Require().NoError(err)

	suite.Require().NoError(c.Start())
	suite.Equal(CollectorStateRunning, c.State())
	suite.ErrorIs(c.Start(), ErrCollectorRunning, "double start MUST fail")

	suite.NoError(c.Stop())
	suite.Equal(CollectorStateNotRunning, c.State())
	suite.NoError(c.Stop(), "stopping a stopped collector MUST be a no-op")

	suite.Run("Restart", func() {
		suite.Require().NoError(c.Start())
		ch <- record("again")
		suite.waitProcessed(c, 1)
		suite.NoError(c.Stop())

		got, err := c.ConsumePlainText()
		suite.NoError(err)
		suite.Equal("again", got)
	})

	suite.Run("ChannelClosed", func() {
		ch2 := make(chan LuaOutputRecord)
		c2, err := NewOutputCollector(ch2, 4, nil)
		suite.Require().NoError(err)
		suite.Require().NoError(c2.Start())
		close(ch2)
		suite.Eventually(func() bool { return c2.State() == CollectorStateNotRunning }, time.Second, time.Millisecond,
			"collector MUST stop when its channel closes")
	})
}

func (suite *OutputCollectorTestSuite) TestDataProcessing() {
	// GOAL: Verify records are concatenated in order and drained once
	//
	// TEST SCENARIO: Send records → consume plain text → consume again gets nothing
	ch := make(chan LuaOutputRecord, 10)
	c, err := NewOutputCollector(ch, 16, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(c.Start())
	defer c.Stop()

	for i := 0; i < 3; i++ {
		ch <- record(fmt.Sprintf("line%d\n", i))
	}
	suite.waitProcessed(c, 3)

	got, err := c.ConsumePlainText()
	suite.NoError(err)
	suite.Equal("line0\nline1\nline2\n", got)

	got, err = c.ConsumePlainText()
	suite.NoError(err)
	suite.Empty(got, "consumed records MUST NOT be returned twice")
}

func (suite *OutputCollectorTestSuite) TestConsumerEarlyStop() {
	ch := make(chan LuaOutputRecord, 10)
	c, err := NewOutputCollector(ch, 16, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(c.Start())
	defer c.Stop()

	ch <- record("a")
	ch <- record("stop")
	ch <- record("b")
	suite.waitProcessed(c, 3)

	seen := 0
	got, err := ConsumeRecords(c, func(r *LuaOutputRecord) (string, bool, error) {
		if r == nil {
			return "end", true, nil
		}
		seen++
		if r.Content == "stop" {
			return "stopped", true, nil
		}
		return "", false, nil
	})
	suite.NoError(err)
	suite.Equal("stopped", got)
	suite.Equal(2, seen)

	failing := errors.New("consumer failed")
	_, err = ConsumeRecords(c, func(r *LuaOutputRecord) (int, bool, error) {
		return 0, false, failing
	})
	suite.ErrorIs(err, failing)
}

func (suite *OutputCollectorTestSuite) TestOverflowOverwritesOldest() {
	ch := make(chan LuaOutputRecord, 64)
	c, err := NewOutputCollector(ch, 4, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(c.Start())
	defer c.Stop()

	for i := 0; i < 20; i++ {
		ch <- record(fmt.Sprintf("%d,", i))
	}
	suite.waitProcessed(c, 20)

	got, err := c.ConsumePlainText()
	suite.NoError(err)
	suite.Contains(got, "19,", "the newest record MUST survive")
	suite.NotContains(got, "0,1,", "the oldest records MUST be overwritten")
	suite.Positive(c.Metrics().RecordsOverwritten)
}

func TestOutputCollectorTestSuite(t *testing.T) {
	suite.Run(t, new(OutputCollectorTestSuite))
}

func TestPlainTextConsumer(t *testing.T) {
	consume := PlainTextConsumer()
	_, done, err := consume(&LuaOutputRecord{Content: "x"})
	require.NoError(t, err)
	assert.False(t, done)

	got, done, err := consume(nil)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "x", got)
}
