package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI definitions of the campaign factory and of a deployed campaign. The
// method set is fixed; everything the client knows about a campaign goes
// through these two surfaces.
const factoryABI = `[
  {"type":"function","name":"getDeployedCampaigns","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[
    {"name":"candidateNames","type":"string[]"},
    {"name":"durationInMinutes","type":"uint256"},
    {"name":"campaignName","type":"string"},
    {"name":"campaignDescription","type":"string"},
    {"name":"startTime","type":"uint256"},
    {"name":"startTimeDisplay","type":"string"}],"outputs":[]},
  {"type":"event","name":"CampaignCreated","anonymous":false,"inputs":[
    {"name":"campaignAddress","type":"address","indexed":false}]}
]`

const campaignABI = `[
  {"type":"function","name":"getCampaignName","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getCampaignDescription","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getStartTime","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCampaignDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getEndTime","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCandidatesCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCandidate","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"string"},{"name":"","type":"uint256"}]},
  {"type":"function","name":"getVotersCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isOwner","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isVoted","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[{"name":"candidateIndex","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"VoteCast","anonymous":false,"inputs":[
    {"name":"candidateIndex","type":"uint256","indexed":false},
    {"name":"newVoteCount","type":"uint256","indexed":false}]}
]`

var (
	parseOnce         sync.Once
	parsedFactoryABI  abi.ABI
	parsedCampaignABI abi.ABI
	parseErr          error
)

func parsedABIs() (abi.ABI, abi.ABI, error) {
	parseOnce.Do(func() {
		parsedFactoryABI, parseErr = abi.JSON(strings.NewReader(factoryABI))
		if parseErr != nil {
			return
		}
		parsedCampaignABI, parseErr = abi.JSON(strings.NewReader(campaignABI))
	})
	return parsedFactoryABI, parsedCampaignABI, parseErr
}
