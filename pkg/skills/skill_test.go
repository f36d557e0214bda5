package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRisk_Rank(t *testing.T) {
	assert.Equal(t, 0, RiskNone.Rank())
	assert.Equal(t, 1, RiskLow.Rank())
	assert.Equal(t, 2, RiskMedium.Rank())
	assert.Equal(t, 3, RiskHigh.Rank())
	assert.Equal(t, 4, RiskCritical.Rank())
	assert.Equal(t, -1, Risk("bogus").Rank())
}

func TestRisk_AtLeast(t *testing.T) {
	assert.True(t, RiskHigh.AtLeast(RiskMedium))
	assert.True(t, RiskMedium.AtLeast(RiskMedium))
	assert.False(t, RiskLow.AtLeast(RiskMedium))
	assert.False(t, Risk("bogus").AtLeast(RiskNone))
}

func TestLayer_Valid(t *testing.T) {
	assert.True(t, LayerAtomic.Valid())
	assert.True(t, LayerMeta.Valid())
	assert.False(t, Layer("molecular").Valid())
	assert.False(t, Layer("").Valid())
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("read-file"))
	assert.True(t, ValidName("a"))
	assert.True(t, ValidName("k8s-deploy-v2"))
	assert.False(t, ValidName("Read-File"))
	assert.False(t, ValidName("read--file"))
	assert.False(t, ValidName("-read"))
	assert.False(t, ValidName("read-"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("read_file"))
}

func TestSkill_EffectiveRisk(t *testing.T) {
	s := &Skill{}
	assert.Equal(t, RiskLow, s.EffectiveRisk())

	s.Risk = RiskCritical
	assert.Equal(t, RiskCritical, s.EffectiveRisk())
}

func TestSkill_TrustWeight(t *testing.T) {
	s := &Skill{}
	assert.Equal(t, 1.0, s.TrustWeight())

	s.Trust = floatPtr(0.5)
	assert.Equal(t, 0.5, s.TrustWeight())
}

func TestSkill_ToolAllowed(t *testing.T) {
	open := &Skill{}
	assert.True(t, open.ToolAllowed("rm"))

	s := &Skill{Metadata: Metadata{
		AllowedTools: []string{"git*", "cat"},
	}}
	assert.True(t, s.ToolAllowed("git"))
	assert.True(t, s.ToolAllowed("git-stash"))
	assert.True(t, s.ToolAllowed("cat"))
	assert.False(t, s.ToolAllowed("rm"))
	assert.False(t, s.ToolAllowed("curl"))
}
